package sharedmemory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := New()

	_, ok := s.Get("missing")
	assert.False(t, ok, "absent key must report ok=false")
	assert.False(t, s.Contains("missing"))

	s.Put("k", []byte("completed"))
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("completed"), v)
	assert.True(t, s.Contains("k"))
}

func TestEmptyValueIsDistinctFromAbsent(t *testing.T) {
	s := New()
	s.Put("empty", []byte{})

	v, ok := s.Get("empty")
	require.True(t, ok, "an explicit empty Put must still be present")
	assert.Equal(t, []byte{}, v)
	assert.True(t, s.Contains("empty"))
}

func TestOverwriteLastWriterWins(t *testing.T) {
	s := New()
	s.Put("k", []byte("first"))
	s.Put("k", []byte("second"))

	v, _ := s.Get("k")
	assert.Equal(t, []byte("second"), v)
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.PutString("k", "v")
		}(i)
		go func(i int) {
			defer wg.Done()
			s.Contains("k")
			s.GetString("k")
		}(i)
	}
	wg.Wait()

	v, ok := s.GetString("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestPutCopiesInputBuffer(t *testing.T) {
	s := New()
	buf := []byte("mutate-me")
	s.Put("k", buf)
	buf[0] = 'X'

	v, _ := s.Get("k")
	assert.Equal(t, []byte("mutate-me"), v, "Put must defensively copy the guest-owned buffer")
}
