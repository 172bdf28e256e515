package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, System.Valid())
	assert.True(t, User.Valid())
	assert.True(t, Assistant.Valid())
	assert.True(t, Tool.Valid())
	assert.False(t, Role("narrator").Valid())
	assert.False(t, Role("").Valid())
}

func TestParse(t *testing.T) {
	r, err := Parse("assistant")
	assert.NoError(t, err)
	assert.Equal(t, Assistant, r)

	_, err = Parse("narrator")
	assert.ErrorContains(t, err, "unknown role")
}

func TestString(t *testing.T) {
	assert.Equal(t, "tool", Tool.String())
}
