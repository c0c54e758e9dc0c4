package imports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/internal/testutil"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/vmcontext"
)

func newRuntime(t *testing.T) wazero.Runtime {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })
	_, err := wasi_snapshot_preview1.Instantiate(ctx, rt)
	require.NoError(t, err)
	return rt
}

// TestExecutionResultRoundTrips instantiates a guest module that calls
// execution_result once and confirms the host's vmcontext.Context captured
// the bytes (spec.md §8: "two invocations of the same program ... produce
// byte-identical VmResult.result").
func TestExecutionResultRoundTrips(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	env, err := imports.Build(ctx, rt, imports.CoreSet, imports.Deps{Adapter: hostadapter.NewTestAdapter()})
	require.NoError(t, err)
	defer env.Close(ctx)

	binary := testutil.ExecutionResultModule([]byte("hello-world"))
	compiled, err := rt.CompileModule(ctx, binary)
	require.NoError(t, err)

	vc := vmcontext.New(runtime.NodeConfig{}, sharedmemory.New(), p2p.NewChannelSender(1))
	callCtx := imports.WithContext(ctx, vc)

	cfg := wazero.NewModuleConfig().WithStartFunctions()
	instance, err := rt.InstantiateModule(callCtx, compiled, cfg)
	require.NoError(t, err)
	defer instance.Close(ctx)

	vc.InstallMemory(instance.Memory())
	_, err = instance.ExportedFunction("_start").Call(callCtx)
	require.NoError(t, err)

	assert.Equal(t, []byte("hello-world"), vc.Result.Get())
}

// TestSharedMemoryAndDBCallSequence exercises the db_set/db_get/
// shared_memory_write call sequence against a TestAdapter and the real
// sharedmemory.Store, matching spec.md §8 scenario 1.
func TestSharedMemoryAndDBCallSequence(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	adapter := hostadapter.NewTestAdapter()
	env, err := imports.Build(ctx, rt, imports.DataRequestSet, imports.Deps{Adapter: adapter})
	require.NoError(t, err)
	defer env.Close(ctx)

	binary := testutil.SharedMemoryAndDBModule()
	compiled, err := rt.CompileModule(ctx, binary)
	require.NoError(t, err)

	store := sharedmemory.New()
	vc := vmcontext.New(runtime.NodeConfig{}, store, p2p.NewChannelSender(1))
	callCtx := imports.WithContext(ctx, vc)

	cfg := wazero.NewModuleConfig().WithStartFunctions()
	instance, err := rt.InstantiateModule(callCtx, compiled, cfg)
	require.NoError(t, err)
	defer instance.Close(ctx)

	vc.InstallMemory(instance.Memory())
	_, err = instance.ExportedFunction("_start").Call(callCtx)
	require.NoError(t, err)

	assert.Equal(t, []byte("ok"), vc.Result.Get())

	value, ok := adapter.DB["from_wasm"]
	require.True(t, ok)
	assert.Equal(t, []byte("somevalue"), value)

	value, ok = adapter.DB["another_one"]
	require.True(t, ok)
	assert.Equal(t, []byte("completed"), value)

	shmValue, ok := store.Get("test_value")
	require.True(t, ok)
	assert.Equal(t, []byte("completed"), shmValue)
}

// TestCapabilitySetFiltersImportRegistration confirms an import outside a
// program's capability set is simply never registered (spec.md §4.5).
func TestCapabilitySetFiltersImportRegistration(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	caps := imports.NewCapabilitySet(imports.ExecutionResult, imports.CallResultLength, imports.CallResultWrite)
	env, err := imports.Build(ctx, rt, caps, imports.Deps{Adapter: hostadapter.NewTestAdapter()})
	require.NoError(t, err)
	defer env.Close(ctx)

	binary := testutil.SharedMemoryAndDBModule()
	compiled, err := rt.CompileModule(ctx, binary)
	require.NoError(t, err)

	cfg := wazero.NewModuleConfig().WithStartFunctions()
	_, err = rt.InstantiateModule(ctx, compiled, cfg)
	assert.Error(t, err, "db_set/shared_memory_write are outside caps, instantiation must fail to resolve them")
}
