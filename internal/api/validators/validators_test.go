package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"client_name" validate:"required"`
	Stage int    `json:"stage" validate:"omitempty,min=1,max=12"`
	Kind  string `json:"kind" validate:"omitempty,oneof=email sms"`
}

func TestMessageUsesJSONNames(t *testing.T) {
	err := New().Struct(sample{Stage: 13, Kind: "fax"})
	require.Error(t, err)
	msg := Message(err)
	assert.Contains(t, msg, "client_name is required")
	assert.Contains(t, msg, "stage must be at most 12")
	assert.Contains(t, msg, "kind must be one of [email sms]")
}

func TestValidStruct(t *testing.T) {
	assert.NoError(t, New().Struct(sample{Name: "Sarah", Stage: 4}))
	assert.Same(t, New(), New())
}
