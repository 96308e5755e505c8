package inputmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateFollowsTurn(t *testing.T) {
	m := NewManager()
	assert.Equal(t, Action, m.Update(true))
	assert.True(t, m.ShouldSendToAI())
	assert.Equal(t, Chat, m.Update(false))
	assert.False(t, m.ShouldSendToAI())
}

func TestManualOverrideHoldsUntilReset(t *testing.T) {
	m := NewManager()
	m.Set(Action, true)
	assert.Equal(t, Action, m.Update(false))

	m.ResetManual()
	assert.Equal(t, Chat, m.Update(false))
}

func TestPinSurvivesReset(t *testing.T) {
	m := NewManager()
	m.Set(Chat, true)
	m.Pin()
	m.ResetManual()
	assert.Equal(t, Chat, m.Update(true))

	m.Unpin()
	assert.Equal(t, Action, m.Update(true))
}

func TestParse(t *testing.T) {
	mode, err := Parse("prompt")
	assert.NoError(t, err)
	assert.Equal(t, Action, mode)

	_, err = Parse("shout")
	assert.Error(t, err)
}
