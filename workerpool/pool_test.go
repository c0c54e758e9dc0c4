package workerpool_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/internal/testutil"
	"github.com/oraclehost/runtime/modcache"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/workerpool"
)

// fakeStore is a ProgramStore backed by an in-memory map, standing in for
// a deployment's managed-binary registry.
type fakeStore struct {
	mu       sync.Mutex
	binaries map[string][]byte
	caps     map[string]imports.CapabilitySet
}

func newFakeStore() *fakeStore {
	return &fakeStore{binaries: make(map[string][]byte), caps: make(map[string]imports.CapabilitySet)}
}

func (s *fakeStore) register(name string, binary []byte, caps imports.CapabilitySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binaries[name] = binary
	s.caps[name] = caps
}

func (s *fakeStore) Lookup(name string) ([]byte, imports.CapabilitySet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.binaries[name]
	return b, s.caps[name], ok
}

func newPool(t *testing.T, store workerpool.ProgramStore, workers int) *workerpool.Pool {
	t.Helper()
	ctx := context.Background()
	cache, err := modcache.New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close(ctx) })

	pool, err := workerpool.New(ctx, workerpool.Config{
		Workers:      workers,
		Cache:        cache,
		Store:        store,
		Deps:         imports.Deps{Adapter: hostadapter.NewTestAdapter()},
		SharedMemory: sharedmemory.New(),
		P2PSender:    p2p.NewChannelSender(8),
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close(ctx) })
	return pool
}

func TestDispatchRunsRegisteredProgram(t *testing.T) {
	store := newFakeStore()
	store.register("echo", testutil.ExecutionResultModule([]byte("pooled")), imports.CoreSet)

	pool := newPool(t, store, 2)

	result, err := pool.Dispatch(context.Background(), runtime.Job{ProgramName: "echo"})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []byte("pooled"), result.Result)
}

func TestDispatchUnknownProgramReportsFailure(t *testing.T) {
	store := newFakeStore()
	pool := newPool(t, store, 1)

	result, err := pool.Dispatch(context.Background(), runtime.Job{ProgramName: "missing"})
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
}

// TestDispatchConcurrentJobsAllSucceed runs more jobs than workers to
// confirm the pool serializes work per worker without dropping jobs.
func TestDispatchConcurrentJobsAllSucceed(t *testing.T) {
	store := newFakeStore()
	store.register("echo", testutil.ExecutionResultModule([]byte("concurrent")), imports.CoreSet)

	pool := newPool(t, store, 3)

	const jobs = 12
	var wg sync.WaitGroup
	results := make([]runtime.VmResult, jobs)
	errs := make([]error, jobs)

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pool.Dispatch(context.Background(), runtime.Job{ProgramName: "echo"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < jobs; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Succeeded())
		assert.Equal(t, []byte("concurrent"), results[i].Result)
	}
}
