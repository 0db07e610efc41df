package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	h := NewHash([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.String())
	assert.Equal(t, "ba7816bf8f01", h.Short())
	assert.False(t, h.IsEmpty())
	assert.True(t, h.Equals(NewHash([]byte("abc"))))
	assert.True(t, Hash("").IsEmpty())
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t, ComputeHash("a", "b"), ComputeHash("a", "b"))
	assert.NotEqual(t, ComputeHash("ab", "c"), ComputeHash("a", "bc"))
}
