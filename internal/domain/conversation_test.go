package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	low, high := NormalizePair(9, 3)
	assert.Equal(t, int64(3), low)
	assert.Equal(t, int64(9), high)

	low, high = NormalizePair(3, 9)
	assert.Equal(t, int64(3), low)
	assert.Equal(t, int64(9), high)
}

func TestTruncateRunes(t *testing.T) {
	t.Run("at cap unchanged", func(t *testing.T) {
		s := strings.Repeat("a", MessageContentCap)
		assert.Equal(t, s, TruncateRunes(s, MessageContentCap))
	})

	t.Run("over cap truncated to exactly the cap", func(t *testing.T) {
		s := strings.Repeat("a", MessageContentCap+1)
		out := TruncateRunes(s, MessageContentCap)
		assert.Len(t, []rune(out), MessageContentCap)
	})

	t.Run("counts code points, not bytes", func(t *testing.T) {
		s := strings.Repeat("한", MessageContentCap+10)
		out := TruncateRunes(s, MessageContentCap)
		assert.Len(t, []rune(out), MessageContentCap)
		assert.Equal(t, strings.Repeat("한", MessageContentCap), out)
	})
}

func TestConversationSides(t *testing.T) {
	c := &Conversation{MemberLow: 3, MemberHigh: 9}
	assert.True(t, c.IsLow(3))
	assert.False(t, c.IsLow(9))
	assert.Equal(t, int64(9), c.Peer(3))
	assert.Equal(t, int64(3), c.Peer(9))
}
