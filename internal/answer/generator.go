package answer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/daniss/Raggy-sub000/internal/config"
	"github.com/daniss/Raggy-sub000/internal/model"
	"github.com/daniss/Raggy-sub000/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces the token stream of one answer. Tokens arrive on the
// first channel in emission order; at most one error arrives on the second.
// Both channels close when generation ends.
type Generator interface {
	Answer(ctx context.Context, question string, sources []model.Source) (<-chan string, <-chan error)
}

// CannedGenerator composes a deterministic answer citing the retrieved
// sources with [n] markers. Used when no model endpoint is configured.
type CannedGenerator struct{}

func NewCannedGenerator() *CannedGenerator {
	return &CannedGenerator{}
}

func (g *CannedGenerator) Answer(ctx context.Context, question string, sources []model.Source) (<-chan string, <-chan error) {
	tokens := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)

		for _, tok := range splitTokens(g.compose(question, sources)) {
			select {
			case tokens <- tok:
			case <-ctx.Done():
				return
			}
		}
	}()

	return tokens, errs
}

func (g *CannedGenerator) compose(question string, sources []model.Source) string {
	if len(sources) == 0 {
		return "Je n'ai trouvé aucun document pertinent pour répondre à cette question."
	}

	var b strings.Builder
	b.WriteString("D'après les documents disponibles : ")
	for i, src := range sources {
		if i > 0 {
			b.WriteString(" Par ailleurs, ")
		}
		b.WriteString(strings.TrimSuffix(src.Excerpt, "."))
		fmt.Fprintf(&b, " [%d].", src.Index)
	}
	return b.String()
}

// splitTokens cuts text into word-sized fragments, preserving whitespace so
// the concatenation of all tokens reproduces the text exactly.
func splitTokens(text string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			tokens = append(tokens, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// OpenAIGenerator streams answer deltas from an OpenAI-compatible chat
// completion endpoint, instructed to cite the provided sources with [n]
// markers.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAIGenerator(cfg config.OpenAIConfig) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *OpenAIGenerator) Answer(ctx context.Context, question string, sources []model.Source) (<-chan string, <-chan error) {
	tokens := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)

		stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			Stream:      true,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(sources)},
				{Role: openai.ChatMessageRoleUser, Content: question},
			},
		})
		if err != nil {
			errs <- err
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					return
				}
				errs <- err
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			select {
			case tokens <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()

	return tokens, errs
}

func systemPrompt(sources []model.Source) string {
	var b strings.Builder
	b.WriteString("Tu réponds uniquement à partir des extraits fournis. ")
	b.WriteString("Cite chaque extrait utilisé avec son numéro entre crochets, par exemple [1].\n\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", src.Index, src.Filename, src.Excerpt)
	}
	return b.String()
}

// FromConfig picks the live generator when an API key is configured, the
// canned one otherwise.
func FromConfig(cfg *config.Config) Generator {
	if cfg.OpenAI.APIKey != "" {
		logger.Infof("answer: using OpenAI-compatible model %s", cfg.OpenAI.Model)
		return NewOpenAIGenerator(cfg.OpenAI)
	}
	logger.Info("answer: no API key configured, using canned generator")
	return NewCannedGenerator()
}
