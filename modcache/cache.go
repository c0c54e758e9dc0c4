// Package modcache implements the content-addressed cache of compiled WASM
// modules described in spec.md §4.3: a directory, one file per hash of the
// source binary, readable cross-restart, shared by every worker's wazero
// runtime.
package modcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"golang.org/x/sync/singleflight"
)

// loadGroup collapses concurrent Load calls for the same (runtime, hash)
// pair into a single rt.CompileModule call, so a cold cache hit by several
// workers racing to compile the same program at startup only pays the
// compile cost once per runtime.
var loadGroup singleflight.Group

// Cache wraps wazero's own directory-backed compilation cache. wazero keys
// cache entries by a hash of the compiled bytes internally, which is
// exactly the "content-addressed ... hit/miss reloads at worker startup"
// behavior spec.md §4.3 asks for — the host does not need to reimplement
// content-addressing on top of it, only expose it as a shared, named
// component with a stable construction path.
type Cache struct {
	dir  string
	comp wazero.CompilationCache
}

// New creates (if needed) the cache directory and opens the compilation
// cache rooted there. Cache-directory creation failure is fatal per
// spec.md §4.3 ("must not silently degrade").
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("modcache: create cache dir %q: %w", dir, err)
	}
	comp, err := wazero.NewCompilationCacheWithDir(dir)
	if err != nil {
		return nil, fmt.Errorf("modcache: open compilation cache in %q: %w", dir, err)
	}
	return &Cache{dir: dir, comp: comp}, nil
}

// Dir returns the cache's backing directory.
func (c *Cache) Dir() string { return c.dir }

// RuntimeConfig returns a wazero.RuntimeConfig pre-wired to this cache, for
// use by every worker's wazeroengine.Driver so that compiled artifacts are
// shared across workers and across process restarts.
func (c *Cache) RuntimeConfig() wazero.RuntimeConfig {
	return wazero.NewRuntimeConfig().WithCompilationCache(c.comp)
}

// Close releases the underlying compilation cache. Callers should do this
// once at process shutdown, after every worker using it has stopped.
func (c *Cache) Close(ctx context.Context) error {
	return c.comp.Close(ctx)
}

// Hash returns the content hash spec.md §4.3 keys cache entries by,
// exposed for diagnostics and for the content-addressing test property
// (identical binary bytes resolve to identical cached entries).
func Hash(binary []byte) string {
	sum := sha256.Sum256(binary)
	return hex.EncodeToString(sum[:])
}

// Load compiles binary against rt, benefiting from rt's CompilationCache
// (see RuntimeConfig) when the same bytes were compiled before, by this
// process or a prior one. Compile failure is fatal to the calling worker
// (spec.md §4.3, §7): wazero's error is wrapped with %w together with the
// binary's hash, so errors.Is/errors.As still reach it.
func Load(ctx context.Context, rt wazero.Runtime, binary []byte) (wazero.CompiledModule, error) {
	hash := Hash(binary)
	key := fmt.Sprintf("%p/%s", rt, hash)

	v, err, _ := loadGroup.Do(key, func() (interface{}, error) {
		return rt.CompileModule(ctx, binary)
	})
	if err != nil {
		return nil, fmt.Errorf("modcache: compile module (hash %s): %w", hash, err)
	}
	return v.(wazero.CompiledModule), nil
}
