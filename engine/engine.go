// Package engine is the runtime's top-level composition root: it wires
// the worker pool, the module cache, and the host adapter into the single
// Dispatch boundary a caller (a job queue consumer, a CLI, a test) uses.
//
// It is kept separate from the root runtime package (which holds only the
// Job/NodeConfig/VmResult data model, spec.md §3) so that the data model
// stays a leaf package every other component can depend on without
// creating an import cycle back through here.
package engine

import (
	"context"
	"fmt"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/log"
	"github.com/oraclehost/runtime/modcache"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/workerpool"
)

// Config configures a new Engine.
type Config struct {
	// CacheDir is where compiled-module bytes are cached across restarts
	// (spec.md §4.3).
	CacheDir string

	// Workers is the number of fixed worker goroutines dispatching jobs.
	Workers int

	// Store resolves a Job.ProgramName to its managed WASM binary and
	// capability set.
	Store workerpool.ProgramStore

	// Adapter serves every guest effect (HTTP, chain, KV, events).
	Adapter hostadapter.Adapter

	// Logger receives the guest's console_log output. Defaults to a
	// production zap logger if nil.
	Logger *log.Logger

	// NodeConfig is handed unchanged to every invocation.
	NodeConfig runtime.NodeConfig

	// SharedMemory is the KV store backing shared_memory_*. A fresh empty
	// store is created if nil.
	SharedMemory *sharedmemory.Store

	// P2PSender is the outbound broadcast channel backing p2p_broadcast.
	// A buffered ChannelSender is created if nil.
	P2PSender p2p.Sender
}

// Engine is the runtime's public entry point: one cache, one worker pool,
// one adapter, reachable through Dispatch.
type Engine struct {
	cache *modcache.Cache
	pool  *workerpool.Pool
}

// New starts an Engine: opens (or creates) the compiled-module cache
// directory and starts cfg.Workers workers.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: Config.Store is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("engine: Config.Adapter is required")
	}

	cache, err := modcache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("engine: open module cache: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New()
	}
	shared := cfg.SharedMemory
	if shared == nil {
		shared = sharedmemory.New()
	}
	sender := cfg.P2PSender
	if sender == nil {
		sender = p2p.NewChannelSender(64)
	}

	pool, err := workerpool.New(ctx, workerpool.Config{
		Workers:      cfg.Workers,
		Cache:        cache,
		Store:        cfg.Store,
		Deps:         imports.Deps{Adapter: cfg.Adapter, Logger: logger},
		NodeConfig:   cfg.NodeConfig,
		SharedMemory: shared,
		P2PSender:    sender,
	})
	if err != nil {
		cache.Close(ctx)
		return nil, fmt.Errorf("engine: start worker pool: %w", err)
	}

	return &Engine{cache: cache, pool: pool}, nil
}

// Dispatch runs job on the pool, blocking until a worker has executed it
// or ctx is done.
func (e *Engine) Dispatch(ctx context.Context, job runtime.Job) (runtime.VmResult, error) {
	return e.pool.Dispatch(ctx, job)
}

// Close stops the worker pool and releases the module cache.
func (e *Engine) Close(ctx context.Context) error {
	e.pool.Close(ctx)
	return e.cache.Close(ctx)
}
