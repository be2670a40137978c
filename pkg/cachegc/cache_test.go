package cachegc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	set, err := NewSet(2, time.Minute)
	require.NoError(t, err)
	clock := time.Unix(1000, 0)
	set.now = func() time.Time { return clock }

	set.Add("a")
	set.Add("b")
	assert.True(t, set.Contains("a"))
	assert.True(t, set.Contains("b"))

	// Size bound evicts the least recently added key.
	set.Add("c")
	assert.False(t, set.Contains("a"))
	assert.Equal(t, 2, set.Len())

	clock = clock.Add(30 * time.Second)
	set.Add("b")
	clock = clock.Add(45 * time.Second)
	assert.False(t, set.Contains("c"))
	assert.True(t, set.Contains("b"))
	assert.Equal(t, 1, set.Len())
}
