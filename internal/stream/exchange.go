package stream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/daniss/Raggy-sub000/internal/model"
	"github.com/daniss/Raggy-sub000/pkg/logger"
)

type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseStreaming  Phase = "streaming"
	PhaseCompleted  Phase = "completed"
	PhaseErrored    Phase = "errored"
	PhaseStopped    Phase = "stopped"
)

// GenericErrorMessage replaces partial answer text when the exchange fails at
// the transport level. Protocol-level error events surface their own message.
const GenericErrorMessage = "Désolé, une erreur est survenue lors de la génération de la réponse. Veuillez réessayer."

// Result is the frozen outcome of a completed exchange.
type Result struct {
	ConversationID string
	Content        string
	Sources        []model.Source
	LatencyMs      int64
}

// Snapshot is a coherent view of an in-flight exchange for rendering.
type Snapshot struct {
	Phase          Phase
	ConversationID string
	Text           string
	Sources        []model.Source
}

// Callbacks parameterize an Exchange so every chat surface shares one state
// machine implementation instead of re-implementing the consumption loop.
type Callbacks struct {
	OnStart    func(conversationID string)
	OnToken    func(delta, total string)
	OnSources  func(sources []model.Source)
	OnComplete func(res Result)
	// OnError receives the underlying cause (for a retry affordance) and the
	// user-facing message that replaces the partial text.
	OnError   func(cause error, userMessage string)
	OnStopped func(partial string)
}

// Exchange owns the lifecycle of one in-flight question/answer stream. It
// appends tokens in arrival order, wholesale-replaces the source list on every
// sources event, and resolves to exactly one terminal phase. At most one
// Exchange is active per session.
type Exchange struct {
	mu             sync.Mutex
	phase          Phase
	conversationID string
	text           strings.Builder
	sources        []model.Source
	cb             Callbacks
}

func NewExchange(cb Callbacks) *Exchange {
	return &Exchange{phase: PhaseConnecting, cb: cb}
}

func (e *Exchange) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Snapshot returns a consistent copy of the current state.
func (e *Exchange) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Phase:          e.phase,
		ConversationID: e.conversationID,
		Text:           e.text.String(),
		Sources:        copySources(e.sources),
	}
}

// HandleEvent advances the state machine with one interpreted frame. Events
// arriving after a terminal phase are ignored.
func (e *Exchange) HandleEvent(ev Event) {
	e.mu.Lock()

	if e.terminal() {
		e.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventStart:
		e.conversationID = ev.ConversationID
		e.phase = PhaseStreaming
		cb := e.cb.OnStart
		e.mu.Unlock()
		if cb != nil {
			cb(ev.ConversationID)
		}

	case EventToken:
		e.phase = PhaseStreaming
		e.text.WriteString(ev.Text)
		total := e.text.String()
		cb := e.cb.OnToken
		e.mu.Unlock()
		if cb != nil {
			cb(ev.Text, total)
		}

	case EventSources:
		// A new sources event always supersedes any prior list for the same
		// answer. Replace, never merge.
		e.phase = PhaseStreaming
		e.sources = copySources(ev.Sources)
		sources := copySources(ev.Sources)
		cb := e.cb.OnSources
		e.mu.Unlock()
		if cb != nil {
			cb(sources)
		}

	case EventComplete:
		e.phase = PhaseCompleted
		res := Result{
			ConversationID: e.conversationID,
			Content:        e.text.String(),
			Sources:        copySources(e.sources),
			LatencyMs:      ev.LatencyMs,
		}
		cb := e.cb.OnComplete
		e.mu.Unlock()
		if cb != nil {
			cb(res)
		}

	case EventError:
		e.phase = PhaseErrored
		cb := e.cb.OnError
		e.mu.Unlock()
		if cb != nil {
			cb(fmt.Errorf("server reported error: %s", ev.Message), ev.Message)
		}

	default:
		e.mu.Unlock()
		logger.Warnf("exchange: ignoring event with unexpected type %q", ev.Type)
	}
}

// FailTransport resolves the exchange as errored after a connection-level
// failure: refused connection, non-success status, or a stream aborted before
// a complete/error frame. The partial text is dropped from the visible
// message; the cause is kept for the retry affordance.
func (e *Exchange) FailTransport(cause error) {
	e.mu.Lock()
	if e.terminal() {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseErrored
	cb := e.cb.OnError
	e.mu.Unlock()
	if cb != nil {
		cb(cause, GenericErrorMessage)
	}
}

// Stop resolves the exchange as stopped on explicit user cancellation. Unlike
// an error, the partial text stays visible: the user chose to stop, nothing
// failed.
func (e *Exchange) Stop() {
	e.mu.Lock()
	if e.terminal() {
		e.mu.Unlock()
		return
	}
	e.phase = PhaseStopped
	partial := e.text.String()
	cb := e.cb.OnStopped
	e.mu.Unlock()
	if cb != nil {
		cb(partial)
	}
}

func (e *Exchange) terminal() bool {
	switch e.phase {
	case PhaseCompleted, PhaseErrored, PhaseStopped:
		return true
	}
	return false
}

func copySources(src []model.Source) []model.Source {
	if src == nil {
		return nil
	}
	out := make([]model.Source, len(src))
	copy(out, src)
	return out
}
