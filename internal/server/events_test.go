package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashpoint/pkg/core"
)

func TestStepEventRoundTrip(t *testing.T) {
	report := core.StepReport{
		Step:            4,
		ActivationOrder: []int{2, 0, 1},
		Explosions:      []core.Position{{X: 3, Y: 3}},
		Stats:           core.Stats{Step: 4, FireCells: 5},
		Outcome:         core.OutcomeDefeat,
	}
	data, err := EncodeStepEvent("game-7", report)
	require.NoError(t, err)

	gameID, body, err := DecodeStepEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "game-7", gameID)
	assert.EqualValues(t, 4, body["step"])
	assert.Equal(t, []any{2.0, 0.0, 1.0}, body["activation_order"])
	assert.Equal(t, "defeat", body["outcome"])
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1")
	assert.Error(t, err)
}
