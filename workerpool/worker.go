package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/modcache"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/wazeroengine"
)

// worker owns one driver (and therefore one wazero.Runtime) and a
// per-worker cache of already-compiled modules, so a program that has run
// once on this worker never pays compile cost again (spec.md §4.3/§4.7).
type worker struct {
	id       int
	driver   *wazeroengine.Driver
	store    ProgramStore
	deps     imports.Deps
	nodeCfg  runtime.NodeConfig
	shared   *sharedmemory.Store
	sender   p2p.Sender
	compiled map[string]wazero.CompiledModule
}

func (w *worker) run(ctx context.Context, tasks <-chan task, wg *sync.WaitGroup) {
	defer wg.Done()
	defer w.driver.Close(ctx)

	for t := range tasks {
		t.result <- w.execute(ctx, t.job)
	}
}

// execute runs one job on this worker. Every invocation is tagged with a
// correlation ID, logged around the run, so a program's scattered host-side
// log lines (adapter calls, guest console_log, exit info) can be grepped
// back together across a busy worker's interleaved jobs.
func (w *worker) execute(ctx context.Context, job runtime.Job) runtime.VmResult {
	correlationID := uuid.New().String()
	logger := w.deps.Logger
	fields := []zap.Field{
		zap.Int("worker_id", w.id),
		zap.String("correlation_id", correlationID),
		zap.String("program", job.ProgramName),
	}
	if logger != nil {
		logger.Info("dispatching job", fields...)
	}

	binary, caps, ok := w.store.Lookup(job.ProgramName)
	if !ok {
		result := runtime.VmResult{
			ExitInfo: runtime.ExitInfo{
				Code:    runtime.ExitFailedToCreateInstance,
				Message: fmt.Sprintf("no managed binary registered for program %q", job.ProgramName),
			},
		}
		if logger != nil {
			logger.Warn("program not registered", append(fields, zap.Int("exit_code", int(result.ExitInfo.Code)))...)
		}
		return result
	}

	compiled, ok := w.compiled[job.ProgramName]
	if !ok {
		var err error
		compiled, err = modcache.Load(ctx, w.driver.Runtime, binary)
		if err != nil {
			result := runtime.VmResult{
				ExitInfo: runtime.ExitInfo{Code: runtime.ExitFailedToCreateInstance, Message: err.Error()},
			}
			if logger != nil {
				logger.Error("compile failed", append(fields, zap.Error(err))...)
			}
			return result
		}
		w.compiled[job.ProgramName] = compiled
	}

	result := w.driver.Run(ctx, compiled, job, wazeroengine.Invocation{
		NodeConfig:   w.nodeCfg,
		SharedMemory: w.shared,
		P2PSender:    w.sender,
		Capabilities: caps,
		Deps:         w.deps,
	})

	if logger != nil {
		logger.Info("job completed",
			append(fields,
				zap.Int("exit_code", int(result.ExitInfo.Code)),
				zap.Bool("succeeded", result.Succeeded()),
			)...)
	}
	return result
}
