package natsbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ruleflow/errors"
	"github.com/c360/ruleflow/handler"
)

func TestNew_RequiresClient(t *testing.T) {
	bridge, err := New(nil, nil, nil)
	assert.Nil(t, bridge)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConnection)
}

func TestCommandEnvelope(t *testing.T) {
	cmd := newCommand("task.create", handler.Task{
		Title:       "Call customer",
		Description: "Welcome call for Acme",
	})

	data, err := json.Marshal(cmd)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "task.create", decoded["kind"])
	assert.NotEmpty(t, decoded["issued_at"])

	payload, ok := decoded["payload"].(map[string]any)
	require.True(t, ok, "payload should be an object")
	assert.Equal(t, "Call customer", payload["title"])
	assert.Equal(t, "Welcome call for Acme", payload["description"])
}

func TestWire(t *testing.T) {
	// Wire fills every slot the bridge covers; the webhook slot is
	// whatever the caller provides, including nil for unwired.
	b := &Bridge{}
	reg := b.Wire(nil)

	assert.NotNil(t, reg.Tasks)
	assert.NotNil(t, reg.Schedule)
	assert.NotNil(t, reg.Email)
	assert.NotNil(t, reg.Inventory)
	assert.Nil(t, reg.Webhook)
}
