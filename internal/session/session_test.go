package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrecabarren/trivia-server/internal/hub"
)

func TestFlattenMergesPayloadAlongsideType(t *testing.T) {
	env := hub.Envelope{Type: "round_question", Payload: map[string]any{"question": "42?"}}
	out := flatten(env)
	assert.Equal(t, "round_question", out["type"])
	assert.Equal(t, "42?", out["question"])
}

func TestFlattenToleratesNilPayload(t *testing.T) {
	out := flatten(hub.Envelope{Type: "answer_time_ended"})
	assert.Equal(t, map[string]any{"type": "answer_time_ended"}, out)
}

func TestDecodeCorrectnessAcceptsStringForm(t *testing.T) {
	assert.True(t, decodeCorrectness(json.RawMessage(`"true"`)))
	assert.False(t, decodeCorrectness(json.RawMessage(`"false"`)))
}

func TestDecodeCorrectnessAcceptsBooleanForm(t *testing.T) {
	assert.True(t, decodeCorrectness(json.RawMessage(`true`)))
	assert.False(t, decodeCorrectness(json.RawMessage(`false`)))
}
