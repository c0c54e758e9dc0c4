package modcache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/oraclehost/runtime/internal/testutil"
	"github.com/oraclehost/runtime/modcache"
)

func TestLoadCompilesAndCachesAcrossRuntimes(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "modcache")

	cache, err := modcache.New(dir)
	require.NoError(t, err)
	defer cache.Close(ctx)

	binary := testutil.MemoryOnlyModule()

	rt1 := wazero.NewRuntimeWithConfig(ctx, cache.RuntimeConfig())
	defer rt1.Close(ctx)
	mod1, err := modcache.Load(ctx, rt1, binary)
	require.NoError(t, err)
	assert.NotNil(t, mod1)

	// A second, independent runtime sharing the same on-disk cache
	// directory must also be able to load the identical bytes (content
	// addressing persists cross-restart, spec.md §4.3/§8).
	rt2 := wazero.NewRuntimeWithConfig(ctx, cache.RuntimeConfig())
	defer rt2.Close(ctx)
	mod2, err := modcache.Load(ctx, rt2, binary)
	require.NoError(t, err)
	assert.NotNil(t, mod2)
}

func TestLoadRejectsMalformedBinary(t *testing.T) {
	ctx := context.Background()
	cache, err := modcache.New(t.TempDir())
	require.NoError(t, err)
	defer cache.Close(ctx)

	rt := wazero.NewRuntimeWithConfig(ctx, cache.RuntimeConfig())
	defer rt.Close(ctx)

	_, err = modcache.Load(ctx, rt, testutil.MalformedBinary())
	assert.Error(t, err)
}

func TestHashIsDeterministicAndContentAddressed(t *testing.T) {
	a := testutil.MemoryOnlyModule()
	b := testutil.MemoryOnlyModule()
	assert.Equal(t, modcache.Hash(a), modcache.Hash(b), "identical bytes must hash identically")

	c := testutil.ExecutionResultModule([]byte("x"))
	assert.NotEqual(t, modcache.Hash(a), modcache.Hash(c), "different bytes must (almost certainly) hash differently")
}

func TestConcurrentLoadOfSameHashBothSucceed(t *testing.T) {
	ctx := context.Background()
	cache, err := modcache.New(t.TempDir())
	require.NoError(t, err)
	defer cache.Close(ctx)

	rt := wazero.NewRuntimeWithConfig(ctx, cache.RuntimeConfig())
	defer rt.Close(ctx)

	binary := testutil.MemoryOnlyModule()
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := modcache.Load(ctx, rt, binary)
			errs <- err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
}
