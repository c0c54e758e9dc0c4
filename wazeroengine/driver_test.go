package wazeroengine_test

import (
	"context"
	"path/filepath"
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
	"github.com/oraclehost/runtime/wazeroengine"
)

func newDriver(t *testing.T) (*wazeroengine.Driver, *modcache.Cache) {
	t.Helper()
	ctx := context.Background()
	cache, err := modcache.New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close(ctx) })

	d, err := wazeroengine.New(ctx, cache)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(ctx) })
	return d, cache
}

func baseInvocation() wazeroengine.Invocation {
	return wazeroengine.Invocation{
		SharedMemory: sharedmemory.New(),
		P2PSender:    p2p.NewChannelSender(1),
		Capabilities: imports.CoreSet,
		Deps:         imports.Deps{Adapter: hostadapter.NewTestAdapter()},
	}
}

// TestRunSucceedsAndCapturesResult is spec.md §8's success-path scenario:
// a well-formed module reaches execution_result and the VmResult reports
// ExitSuccess with the guest's bytes.
func TestRunSucceedsAndCapturesResult(t *testing.T) {
	ctx := context.Background()
	d, _ := newDriver(t)

	binary := testutil.ExecutionResultModule([]byte("ack"))
	compiled, err := modcache.Load(ctx, d.Runtime, binary)
	require.NoError(t, err)

	result := d.Run(ctx, compiled, runtime.Job{ProgramName: "ack-program"}, baseInvocation())

	assert.True(t, result.Succeeded())
	assert.Equal(t, runtime.ExitSuccess, result.ExitInfo.Code)
	assert.Equal(t, []byte("ack"), result.Result)
}

// TestRunReportsMissingEntryPoint is spec.md §8 scenario 2: a Job naming a
// start_func the module doesn't export must report ExitFailedToGetEntryFunc
// (pinned numeric value 5).
func TestRunReportsMissingEntryPoint(t *testing.T) {
	ctx := context.Background()
	d, _ := newDriver(t)

	binary := testutil.MemoryOnlyModule()
	compiled, err := modcache.Load(ctx, d.Runtime, binary)
	require.NoError(t, err)

	job := runtime.Job{ProgramName: "no-such-entry", StartFunc: "does_not_exist"}
	result := d.Run(ctx, compiled, job, baseInvocation())

	assert.False(t, result.Succeeded())
	assert.Equal(t, runtime.ExitFailedToGetEntryFunc, result.ExitInfo.Code)
	assert.EqualValues(t, 5, result.ExitInfo.Code)
}

// TestRunTwiceProducesIdenticalResult pins spec.md §8's determinism
// invariant: two invocations of the same program with the same inputs
// produce a byte-identical VmResult.Result.
func TestRunTwiceProducesIdenticalResult(t *testing.T) {
	ctx := context.Background()
	d, _ := newDriver(t)

	binary := testutil.ExecutionResultModule([]byte("deterministic"))
	compiled, err := modcache.Load(ctx, d.Runtime, binary)
	require.NoError(t, err)

	job := runtime.Job{ProgramName: "deterministic-program"}
	first := d.Run(ctx, compiled, job, baseInvocation())
	second := d.Run(ctx, compiled, job, baseInvocation())

	require.True(t, first.Succeeded())
	require.True(t, second.Succeeded())
	assert.Equal(t, first.Result, second.Result)
}
