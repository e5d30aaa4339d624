package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/daniss/Raggy-sub000/internal/model"
)

type EventType string

const (
	EventStart    EventType = "start"
	EventToken    EventType = "token"
	EventSources  EventType = "sources"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// ErrUnknownEventType reports a frame whose type string is not part of the
// protocol. Callers log and drop it; it is never fatal to the stream.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is one interpreted protocol frame. Only the fields relevant to its
// Type are populated.
type Event struct {
	Type           EventType
	ConversationID string         // start
	Text           string         // token
	Sources        []model.Source // sources, full replacement list
	LatencyMs      int64          // complete
	Message        string         // error
}

type rawEvent struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	Sources        []model.Source `json:"sources"`
	ResponseTime   float64        `json:"response_time"`
	Message        string         `json:"message"`
}

// ParseEvent deserializes one frame payload and classifies it. A failed parse
// or an unrecognized type returns an error the caller is expected to log and
// swallow: a single corrupt frame must not sacrifice the answer.
func ParseEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("malformed frame payload: %w", err)
	}

	switch EventType(raw.Type) {
	case EventStart:
		return Event{Type: EventStart, ConversationID: raw.ConversationID}, nil
	case EventToken:
		return Event{Type: EventToken, Text: raw.Content}, nil
	case EventSources:
		return Event{Type: EventSources, Sources: raw.Sources}, nil
	case EventComplete:
		return Event{Type: EventComplete, LatencyMs: int64(math.Round(raw.ResponseTime))}, nil
	case EventError:
		return Event{Type: EventError, Message: raw.Message}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, raw.Type)
	}
}
