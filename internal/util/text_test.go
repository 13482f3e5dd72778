package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 like", Plural(1, "like"))
	assert.Equal(t, "3 likes", Plural(3, "like"))
	assert.Equal(t, "0 comments", Plural(0, "comment"))
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a, b", JoinNonEmpty([]string{"a", "", "b"}, ", "))
	assert.Equal(t, "", JoinNonEmpty(nil, ", "))
	assert.Equal(t, "", JoinNonEmpty([]string{"", ""}, ", "))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \t b\n c  "))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(1, 5, 10))
	assert.Equal(t, 10, Clamp(50, 5, 10))
	assert.Equal(t, 7, Clamp(7, 5, 10))
}
