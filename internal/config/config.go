package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Storage StorageConfig `mapstructure:"storage"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
}

// ServerConfig configures the answerd reference backend.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	TokenDelay     time.Duration `mapstructure:"token_delay"`
}

// BackendConfig points the consumer at the question-answering backend.
type BackendConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	SessionToken string `mapstructure:"session_token"`
}

type QuotaConfig struct {
	MaxQuestions int           `mapstructure:"max_questions"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

type StorageConfig struct {
	Type    string `mapstructure:"type"`
	DataDir string `mapstructure:"data_dir"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OpenAIConfig enables answerd's live mode: token streams from an
// OpenAI-compatible endpoint instead of the canned corpus.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RAGGY")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file wins; environment variables fill the gaps.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Backend.SessionToken == "" {
		cfg.Backend.SessionToken = os.Getenv("RAGGY_SESSION_TOKEN")
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
