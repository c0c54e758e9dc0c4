// Package workerpool implements the fixed-size worker pool that dispatches
// Jobs to the wazero engine (spec.md §4.7). It is a channel-based
// dispatcher, not an actor framework: a job is handed to whichever worker
// is free, and each worker executes jobs strictly one at a time.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/modcache"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/wazeroengine"
)

// ProgramStore resolves a Job's ProgramName to the managed WASM binary and
// the capability set it is allowed to bind (spec.md §4.5's "programs carry
// a declared capability set").
type ProgramStore interface {
	Lookup(name string) (binary []byte, caps imports.CapabilitySet, ok bool)
}

// task pairs one Job with the channel its VmResult is delivered on.
type task struct {
	job    runtime.Job
	result chan runtime.VmResult
}

// Pool is a fixed set of workers, each owning its own wazeroengine.Driver
// (and therefore its own wazero.Runtime and compiled-module cache),
// reading jobs off a single shared channel.
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
}

// Config carries the collaborators shared across every worker in the pool.
type Config struct {
	Workers      int
	Cache        *modcache.Cache
	Store        ProgramStore
	Deps         imports.Deps
	NodeConfig   runtime.NodeConfig
	SharedMemory *sharedmemory.Store
	P2PSender    p2p.Sender
}

// New starts cfg.Workers workers, each with its own wazero.Runtime built
// against cfg.Cache's shared compilation cache. If any worker fails to
// start, the workers already started are closed before the error returns.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: Workers must be positive, got %d", cfg.Workers)
	}

	p := &Pool{tasks: make(chan task)}
	workers := make([]*worker, 0, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		driver, err := wazeroengine.New(ctx, cfg.Cache)
		if err != nil {
			for _, w := range workers {
				w.driver.Close(ctx)
			}
			return nil, fmt.Errorf("workerpool: start worker %d: %w", i, err)
		}
		workers = append(workers, &worker{
			id:       i,
			driver:   driver,
			store:    cfg.Store,
			deps:     cfg.Deps,
			nodeCfg:  cfg.NodeConfig,
			shared:   cfg.SharedMemory,
			sender:   cfg.P2PSender,
			compiled: make(map[string]wazero.CompiledModule),
		})
	}

	for _, w := range workers {
		p.wg.Add(1)
		go w.run(ctx, p.tasks, &p.wg)
	}

	return p, nil
}

// Dispatch submits job to the pool and blocks until a worker has run it or
// ctx is done. A ctx cancellation after submission does not unwind the
// worker — the job still runs to completion, but Dispatch stops waiting.
func (p *Pool) Dispatch(ctx context.Context, job runtime.Job) (runtime.VmResult, error) {
	t := task{job: job, result: make(chan runtime.VmResult, 1)}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return runtime.VmResult{}, ctx.Err()
	}

	select {
	case r := <-t.result:
		return r, nil
	case <-ctx.Done():
		return runtime.VmResult{}, ctx.Err()
	}
}

// Close stops accepting new jobs and waits for every in-flight job to
// finish, closing each worker's underlying wazero.Runtime.
func (p *Pool) Close(ctx context.Context) {
	close(p.tasks)
	p.wg.Wait()
}
