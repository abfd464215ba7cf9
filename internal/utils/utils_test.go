package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache[string, int](2)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.lruCache.Len(), "expired entries are removed on read")
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewCache[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Get("a")
	c.Set("c", 3, time.Minute)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"  <b>bold</b> move ", "bold move"},
		{"<script>alert(1)</script>hi", "hi"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestParseIndex(t *testing.T) {
	i, ok := ParseIndex("3")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = ParseIndex("-1")
	assert.False(t, ok)
	_, ok = ParseIndex("x")
	assert.False(t, ok)
}

func TestRandomToken(t *testing.T) {
	tok, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty())
}
