package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventStart(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"start","conversation_id":"conv-42"}`))

	require.NoError(t, err)
	assert.Equal(t, EventStart, ev.Type)
	assert.Equal(t, "conv-42", ev.ConversationID)
}

func TestParseEventToken(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"token","content":"Bonjour"}`))

	require.NoError(t, err)
	assert.Equal(t, EventToken, ev.Type)
	assert.Equal(t, "Bonjour", ev.Text)
}

func TestParseEventSources(t *testing.T) {
	payload := `{"type":"sources","sources":[
		{"index":1,"document_id":"doc-1","filename":"contrat.pdf","excerpt":"premier extrait","relevance":0.92,"page":3},
		{"index":2,"document_id":"doc-2","filename":"guide.pdf","excerpt":"second extrait"}
	]}`

	ev, err := ParseEvent([]byte(payload))

	require.NoError(t, err)
	assert.Equal(t, EventSources, ev.Type)
	require.Len(t, ev.Sources, 2)
	assert.Equal(t, 1, ev.Sources[0].Index)
	assert.Equal(t, "contrat.pdf", ev.Sources[0].Filename)
	assert.InDelta(t, 0.92, ev.Sources[0].Relevance, 1e-9)
	assert.Equal(t, 2, ev.Sources[1].Index)
}

func TestParseEventComplete(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"complete","response_time":1234.6}`))

	require.NoError(t, err)
	assert.Equal(t, EventComplete, ev.Type)
	assert.Equal(t, int64(1235), ev.LatencyMs)
}

func TestParseEventError(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"error","message":"index unavailable"}`))

	require.NoError(t, err)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "index unavailable", ev.Message)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"type":"token",`))

	assert.Error(t, err)
}

func TestParseEventUnknownType(t *testing.T) {
	_, err := ParseEvent([]byte(`{"type":"heartbeat"}`))

	assert.ErrorIs(t, err, ErrUnknownEventType)
}
