package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Type     string `json:"type" validate:"omitempty,oneof=father mother"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

func TestMessageUsesJSONNames(t *testing.T) {
	err := New().Struct(sample{Email: "nope", Type: "uncle", Capacity: -1})
	require.Error(t, err)

	msg := Message(err)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "type must be one of: father mother")
	assert.Contains(t, msg, "capacity must be at least 0")
}

func TestMessagePassesOtherErrors(t *testing.T) {
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestValidStruct(t *testing.T) {
	assert.NoError(t, New().Struct(sample{Name: "ok", Email: "a@b.co", Type: "mother"}))
}
