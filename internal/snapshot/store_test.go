package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("a")
	assert.False(t, ok)

	content := []byte("v1")
	s.Set("a", content, time.Unix(100, 0))
	content[0] = 'x'

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v1", string(got), "store must keep its own copy")
	assert.Equal(t, 1, s.Len())
}

func TestStore_ObserveIdempotent(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(100, 0)
	s.Set("a", []byte("v1"), t0)

	for i := 1; i <= 3; i++ {
		changed := s.Observe("a", []byte("v1"), t0.Add(time.Duration(i)*time.Minute))
		assert.False(t, changed)
	}

	got, _ := s.Get("a")
	assert.Equal(t, "v1", string(got))

	observed, changedAt, ok := s.Info("a")
	require.True(t, ok)
	assert.Equal(t, t0.Add(3*time.Minute), observed)
	assert.Equal(t, t0, changedAt)
}

func TestStore_ObserveChange(t *testing.T) {
	s := NewStore()
	t0 := time.Unix(100, 0)
	s.Set("a", []byte("v1"), t0)

	assert.True(t, s.Observe("a", []byte("v2"), t0.Add(time.Minute)))
	got, _ := s.Get("a")
	assert.Equal(t, "v2", string(got))

	_, changedAt, _ := s.Info("a")
	assert.Equal(t, t0.Add(time.Minute), changedAt)

	// the new content is now the baseline
	assert.False(t, s.Observe("a", []byte("v2"), t0.Add(2*time.Minute)))
}

func TestStore_ObserveExactEquality(t *testing.T) {
	s := NewStore()
	s.Set("a", []byte("v1"), time.Unix(0, 0))

	assert.True(t, s.Observe("a", []byte("v1 "), time.Unix(1, 0)), "trailing whitespace is a change")
	assert.True(t, s.Observe("a", []byte(""), time.Unix(2, 0)), "empty content is a change")
}

func TestStore_ObserveUnknownTarget(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Observe("new", []byte("v1"), time.Unix(0, 0)))
	assert.Equal(t, 1, s.Len())
}

func TestStore_InfoMissing(t *testing.T) {
	_, _, ok := NewStore().Info("nope")
	assert.False(t, ok)
}
