// Package wazeroengine is the runtime driver: it owns the wazero.Runtime,
// wires WASI and the capability-filtered host import surface, and carries
// one guest invocation through compile-cache lookup, instantiation, the
// entry-point call, and VmResult assembly (spec.md §4.6). It mirrors the
// teacher's engines/wazero driver, generalized from waPC's eight-function
// ABI to this runtime's seventeen-import, capability-filtered surface.
package wazeroengine

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/imports"
	"github.com/oraclehost/runtime/modcache"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
	"github.com/oraclehost/runtime/vmcontext"
)

// Driver owns one wazero.Runtime (and its compilation cache) and drives
// invocations against compiled modules loaded through modcache.
type Driver struct {
	Runtime wazero.Runtime
}

// New builds a Driver backed by cache's runtime config, with the WASI
// preview1 snapshot instantiated so guests compiled as WASI command
// modules resolve their imports (spec.md §4.6 step 1).
func New(ctx context.Context, cache *modcache.Cache) (*Driver, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, cache.RuntimeConfig())
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: instantiate wasi_snapshot_preview1: %w", err)
	}
	return &Driver{Runtime: rt}, nil
}

// Close releases the underlying wazero.Runtime and everything instantiated
// against it.
func (d *Driver) Close(ctx context.Context) error {
	return d.Runtime.Close(ctx)
}

// Invocation bundles the per-call collaborators a Run needs beyond the
// compiled module and Job itself.
type Invocation struct {
	NodeConfig   runtime.NodeConfig
	SharedMemory *sharedmemory.Store
	P2PSender    p2p.Sender
	Capabilities imports.CapabilitySet
	Deps         imports.Deps
}

// Run executes one guest invocation end to end (spec.md §4.6): binds the
// capability-filtered host imports, instantiates compiled against the WASI
// module config built from job and inv.NodeConfig, installs guest memory,
// calls the resolved entry point, and assembles a VmResult. Setup failures
// (steps 2-6) are reported as the matching pinned StatusCode; Run never
// returns a Go error, and a nil compiled module is reported as
// ExitFailedToCreateInstance.
func (d *Driver) Run(ctx context.Context, compiled wazero.CompiledModule, job runtime.Job, inv Invocation) runtime.VmResult {
	if compiled == nil {
		return runtime.VmResult{ExitInfo: runtime.ExitInfo{Code: runtime.ExitFailedToCreateInstance, Message: "compiled module is nil"}}
	}

	var stdout, stderr bytes.Buffer
	vc := vmcontext.New(inv.NodeConfig, inv.SharedMemory, inv.P2PSender)

	env, err := imports.Build(ctx, d.Runtime, inv.Capabilities, inv.Deps)
	if err != nil {
		return runtime.VmResult{
			ExitInfo: runtime.ExitInfo{Code: runtime.ExitFailedToCreateVMImports, Message: err.Error()},
		}
	}
	defer env.Close(ctx)

	// WithStartFunctions() with no arguments disables wazero's default
	// behavior of auto-invoking an exported _start during instantiation —
	// the guest's memory must be installed on vc first (spec.md §4.4), so
	// the entry point is always called explicitly below instead.
	modCfg := wazero.NewModuleConfig().
		WithStartFunctions().
		WithName(job.ProgramName).
		WithArgs(append([]string{job.ProgramName}, job.Args...)...).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithEnv("ORACLE_CONTRACT_ID", inv.NodeConfig.ContractID).
		WithEnv("ED25519_PUBLIC_KEY", hex.EncodeToString(inv.NodeConfig.Ed25519PublicKey)).
		WithEnv("BN254_PUBLIC_KEY", hex.EncodeToString(inv.NodeConfig.BN254PublicKey))

	callCtx := imports.WithContext(ctx, vc)

	instance, err := d.Runtime.InstantiateModule(callCtx, compiled, modCfg)
	if err != nil {
		return runtime.VmResult{
			Stdout:   splitLines(stdout.String()),
			Stderr:   splitLines(stderr.String()),
			ExitInfo: runtime.ExitInfo{Code: runtime.ExitFailedToCreateInstance, Message: err.Error()},
		}
	}
	defer instance.Close(ctx)

	mem := instance.Memory()
	if mem == nil {
		return runtime.VmResult{
			Stdout:   splitLines(stdout.String()),
			Stderr:   splitLines(stderr.String()),
			ExitInfo: runtime.ExitInfo{Code: runtime.ExitFailedToGetMemory},
		}
	}
	vc.InstallMemory(mem)

	entry := instance.ExportedFunction(job.EntryPoint())
	if entry == nil {
		return runtime.VmResult{
			Stdout: splitLines(stdout.String()),
			Stderr: splitLines(stderr.String()),
			ExitInfo: runtime.ExitInfo{
				Code:    runtime.ExitFailedToGetEntryFunc,
				Message: fmt.Sprintf("export %q not found", job.EntryPoint()),
			},
		}
	}

	if _, err := entry.Call(callCtx); err != nil {
		if exitErr, ok := asWasiExitError(err); ok && exitErr == 0 {
			// A WASI command module's normal return path is proc_exit(0) —
			// not a trap, and not an execution error.
		} else {
			return runtime.VmResult{
				Stdout:   splitLines(stdout.String()),
				Stderr:   splitLines(stderr.String()),
				Result:   vc.Result.Get(),
				ExitInfo: runtime.ExitInfo{Code: runtime.ExitExecutionError, Message: err.Error()},
			}
		}
	}

	return runtime.VmResult{
		Stdout:   splitLines(stdout.String()),
		Stderr:   splitLines(stderr.String()),
		Result:   vc.Result.Get(),
		ExitInfo: runtime.ExitInfo{Code: runtime.ExitSuccess},
	}
}

// splitLines reports each non-empty line written to a captured stdout or
// stderr pipe as its own entry, matching original_source's Vec<String>
// VmResult.stdout/stderr rather than one joined blob.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// asWasiExitError unwraps a wazero sys.ExitError to its numeric exit code,
// wazero's analogue of the WASI proc_exit trap a command module uses to
// signal completion.
func asWasiExitError(err error) (uint32, bool) {
	if e, ok := err.(interface{ ExitCode() uint32 }); ok {
		return e.ExitCode(), true
	}
	return 0, false
}
