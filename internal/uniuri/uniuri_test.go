package uniuri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLenChars(t *testing.T) {
	chars := []byte("ab")
	s := NewLenChars(200, chars)

	assert.Len(t, s, 200)
	assert.Empty(t, strings.Trim(s, "ab"))
	assert.Contains(t, s, "a")
	assert.Contains(t, s, "b")
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{})

	for range 1000 {
		s := New()
		assert.Len(t, s, StdLen)

		_, dup := seen[s]
		assert.False(t, dup)
		seen[s] = struct{}{}
	}
}

func TestNewLenChars_Panics(t *testing.T) {
	assert.Panics(t, func() { NewLenChars(4, []byte("a")) })
	assert.Empty(t, NewLen(0))
}
