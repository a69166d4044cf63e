package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsValid(t *testing.T) {
	id := New()
	assert.Len(t, id, 27)
	assert.True(t, Valid(id))
	assert.NotEqual(t, id, New())
}

func TestValidRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "abc", "64b7f0c2e4b0a1b2c3d4e5f6", "!!!!!!!!!!!!!!!!!!!!!!!!!!!"} {
		assert.False(t, Valid(s), s)
	}
}
