package transcript

import (
	"errors"
	"sync"
	"time"

	"github.com/daniss/Raggy-sub000/internal/model"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrAlreadyStreaming = errors.New("a message is already streaming")
	ErrNotStreaming     = errors.New("message is not streaming")
)

// Transcript is the ordered message history of one conversation. Submission
// inserts an optimistic user/assistant pair; streaming grows the assistant
// placeholder's content in place; a terminal outcome replaces the placeholder
// atomically at the same position. Insertion order is never rearranged.
type Transcript struct {
	mu          sync.RWMutex
	messages    []model.Message
	streamingID string
}

func New() *Transcript {
	return &Transcript{}
}

// Submit appends a user message and an assistant placeholder with
// IsStreaming set, both under provisional IDs. The placeholder ID is the
// handle every later streaming update targets.
func (t *Transcript) Submit(question string) (userID, placeholderID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streamingID != "" {
		return "", "", ErrAlreadyStreaming
	}

	now := time.Now()
	userID = model.NewProvisionalID()
	placeholderID = model.NewProvisionalID()

	t.messages = append(t.messages,
		model.Message{
			ID:        userID,
			Role:      model.RoleUser,
			Content:   question,
			CreatedAt: now,
		},
		model.Message{
			ID:          placeholderID,
			Role:        model.RoleAssistant,
			CreatedAt:   now,
			IsStreaming: true,
		},
	)
	t.streamingID = placeholderID

	return userID, placeholderID, nil
}

// Append grows the streaming placeholder's content. No other message is
// touched.
func (t *Transcript) Append(id, delta string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexOfStreaming(id)
	if err != nil {
		return err
	}
	t.messages[i].Content += delta
	return nil
}

// Finalize replaces the placeholder with the frozen answer, preserving its
// position and creation time.
func (t *Transcript) Finalize(id, content string, sources []model.Source, latencyMs int64, notice string) error {
	return t.settle(id, func(m *model.Message) {
		m.Content = content
		m.Sources = sources
		m.LatencyMs = latencyMs
		m.Notice = notice
	})
}

// Fail replaces the placeholder's content with the terminal error text. Any
// partial streamed content is discarded; no sources are attached.
func (t *Transcript) Fail(id, content string) error {
	return t.settle(id, func(m *model.Message) {
		m.Content = content
		m.Sources = nil
	})
}

// Stop settles the placeholder after user cancellation: the partial content
// stays, no error text, no sources.
func (t *Transcript) Stop(id string) error {
	return t.settle(id, func(m *model.Message) {
		m.Sources = nil
	})
}

// Message returns a copy of one message by ID.
func (t *Transcript) Message(id string) (model.Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.messages {
		if t.messages[i].ID == id {
			return t.messages[i], nil
		}
	}
	return model.Message{}, ErrMessageNotFound
}

// Messages returns a copy of the ordered history.
func (t *Transcript) Messages() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) settle(id string, mutate func(*model.Message)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, err := t.indexOfStreaming(id)
	if err != nil {
		return err
	}

	msg := &t.messages[i]
	mutate(msg)
	msg.IsStreaming = false
	t.streamingID = ""
	return nil
}

func (t *Transcript) indexOfStreaming(id string) (int, error) {
	for i := range t.messages {
		if t.messages[i].ID == id {
			if !t.messages[i].IsStreaming {
				return 0, ErrNotStreaming
			}
			return i, nil
		}
	}
	return 0, ErrMessageNotFound
}
