package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// provisionalPrefix marks message IDs minted locally before the server has
// confirmed anything about the exchange.
const provisionalPrefix = "local-"

// Message is one conversational turn in a transcript.
type Message struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	Sources     []Source  `json:"sources,omitempty"`
	IsStreaming bool      `json:"is_streaming"`
	LatencyMs   int64     `json:"latency_ms,omitempty"`
	// Notice carries a one-time annotation, e.g. the last-question warning
	// when the session quota is spent.
	Notice string `json:"notice,omitempty"`
}

// Source is one retrieved evidence snippet backing an answer. Index is the
// 1-based position in the source list delivered for that answer; citation
// markers in the answer text reference this numbering space. Indexes are not
// stable across answers.
type Source struct {
	Index      int     `json:"index"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Excerpt    string  `json:"excerpt"`
	Relevance  float64 `json:"relevance,omitempty"`
	Page       int     `json:"page,omitempty"`
	Section    string  `json:"section,omitempty"`
}

func NewProvisionalID() string {
	return provisionalPrefix + uuid.New().String()
}

func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}
