package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsOldest(t *testing.T) {
	c, err := New[string, []string](2)
	require.NoError(t, err)

	c.Add("a", []string{"weather"})
	c.Add("b", []string{"welcome"})
	_, _ = c.Get("a") // a becomes MRU
	c.Add("c", nil)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"weather"}, v)
	assert.Equal(t, 2, c.Len())

	c.Remove("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestNew_RejectsZeroCapacity(t *testing.T) {
	_, err := New[string, int](0)
	assert.Error(t, err)
}
