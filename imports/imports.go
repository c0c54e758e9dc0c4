// Package imports implements the runtime's host import surface: the
// seventeen functions a guest module may bind under the "env" namespace
// (spec.md §4.5). Every signature here is bit-exact to the original
// implementation's Rust ABI (original_source/runtime/core/src/imports.rs)
// — the mixed i32/i64 parameter widths are not a style choice, they are
// the external contract guest programs are compiled against.
//
// wazero has no native per-instance closure environment (unlike wasmer's
// FunctionEnv), so the per-invocation *vmcontext.Context is threaded
// through context.Context the same way the teacher's wazero engine threads
// its invokeContext: stashed with WithContext before the guest's entry
// point is called, recovered with fromContext inside each host function.
package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/oraclehost/runtime/bn254"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/log"
	"github.com/oraclehost/runtime/vmcontext"
)

type vmCtxKey struct{}

// WithContext stashes vc in ctx for the duration of one guest entry-point
// call, so every host import invoked during that call can recover it.
func WithContext(ctx context.Context, vc *vmcontext.Context) context.Context {
	return context.WithValue(ctx, vmCtxKey{}, vc)
}

// fromContext recovers the Context stashed by WithContext. A miss means a
// host import fired outside of a guest call the runtime itself set up —
// a programmer error, not a guest-triggerable condition.
func fromContext(ctx context.Context) *vmcontext.Context {
	vc, ok := ctx.Value(vmCtxKey{}).(*vmcontext.Context)
	if !ok {
		panic("imports: host function invoked without an installed vmcontext.Context")
	}
	return vc
}

// Deps bundles the collaborators the import surface dispatches effects to.
type Deps struct {
	Adapter hostadapter.Adapter
	Logger  *log.Logger
}

// Build registers the subset of the seventeen host imports allowed by caps
// onto a new "env" host module and instantiates it against rt. An import
// outside caps is never registered, so a guest trying to bind it fails
// instantiation exactly as it would against any other undeclared import.
func Build(ctx context.Context, rt wazero.Runtime, caps CapabilitySet, deps Deps) (api.Module, error) {
	builder := rt.NewHostModuleBuilder("env")
	h := &handlers{deps: deps}

	type entry struct {
		name    Name
		params  []api.ValueType
		results []api.ValueType
		fn      api.GoModuleFunc
	}

	entries := []entry{
		{CallResultLength, nil, []api.ValueType{api.ValueTypeI32}, h.callResultLength},
		{CallResultWrite, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, h.callResultWrite},
		{ExecutionResult, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, h.executionResult},
		{HTTPFetch, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, h.httpFetch},
		{ChainView, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, h.chainView},
		{ChainCall, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, h.chainCall},
		{DBGet, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, h.dbGet},
		{DBSet, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, h.dbSet},
		{P2PBroadcast, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, h.p2pBroadcast},
		{TriggerEvent, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, h.triggerEvent},
		{BN254Sign, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64}, nil, h.bn254Sign},
		{BN254Verify, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI32}, h.bn254Verify},
		{SharedMemoryRead, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64}, nil, h.sharedMemoryRead},
		{SharedMemoryReadLength, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}, h.sharedMemoryReadLength},
		{SharedMemoryWrite, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64}, nil, h.sharedMemoryWrite},
		{SharedMemoryContains, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI32}, h.sharedMemoryContainsKey},
		{ConsoleLog, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI64}, nil, h.log},
	}

	for _, e := range entries {
		if !caps.Allows(e.name) {
			continue
		}
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(e.fn, e.params, e.results).
			Export(string(e.name))
	}

	return builder.Instantiate(ctx)
}

// handlers holds no per-invocation state — every call recovers its
// *vmcontext.Context from ctx via fromContext — only the collaborators
// shared across every invocation on a worker.
type handlers struct {
	deps Deps
}

func (h *handlers) callResultLength(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	stack[0] = uint64(vc.CallResult.Len())
}

func (h *handlers) callResultWrite(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	dst := make([]byte, length)
	if err := vc.CallResult.CopyInto(dst, length); err != nil {
		panic(err)
	}
	requireWrite(mod.Memory(), ptr, dst)
}

func (h *handlers) executionResult(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])
	vc.Result.Set(requireRead(mod.Memory(), ptr, length))
}

type httpAction struct {
	URL string `json:"url"`
}

func (h *handlers) httpFetch(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action httpAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode http_fetch action: %w", err))
	}

	p := h.deps.Adapter.HTTPFetch(ctx, action.URL)
	stack[0] = uint64(stagePromise(vc.CallResult, p))
}

type chainViewAction struct {
	Chain      string `json:"chain"`
	ContractID string `json:"contract_id"`
	MethodName string `json:"method_name"`
	Args       []byte `json:"args"`
}

func (h *handlers) chainView(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action chainViewAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode chain_view action: %w", err))
	}

	p := h.deps.Adapter.ChainView(ctx, action.Chain, action.ContractID, action.MethodName, action.Args)
	stack[0] = uint64(stagePromise(vc.CallResult, p))
}

type chainCallAction struct {
	Chain      string   `json:"chain"`
	ContractID string   `json:"contract_id"`
	MethodName string   `json:"method_name"`
	Args       []byte   `json:"args"`
	Deposit    *big.Int `json:"deposit"`
}

func (h *handlers) chainCall(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	action := chainCallAction{Deposit: new(big.Int)}
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode chain_call action: %w", err))
	}

	p := h.deps.Adapter.ChainCall(ctx, action.Chain, action.ContractID, action.MethodName, action.Args, action.Deposit)
	stack[0] = uint64(stagePromise(vc.CallResult, p))
}

type dbSetAction struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

func (h *handlers) dbSet(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action dbSetAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode db_set action: %w", err))
	}

	p := h.deps.Adapter.DBSet(ctx, action.Key, action.Value)
	stack[0] = uint64(stagePromise(vc.CallResult, p))
}

type dbGetAction struct {
	Key string `json:"key"`
}

func (h *handlers) dbGet(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action dbGetAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode db_get action: %w", err))
	}

	p := h.deps.Adapter.DBGet(ctx, action.Key)
	stack[0] = uint64(stagePromise(vc.CallResult, p))
}

type p2pBroadcastAction struct {
	Data []byte `json:"data"`
}

func (h *handlers) p2pBroadcast(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action p2pBroadcastAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode p2p_broadcast action: %w", err))
	}

	if err := vc.P2PSender.Send(ctx, action.Data); err != nil {
		// The original implementation treats a send failure as fatal to
		// the command channel, not a recoverable guest-visible condition.
		panic(fmt.Errorf("imports: p2p broadcast: %w", err))
	}
}

type triggerEventAction struct {
	Event json.RawMessage `json:"event"`
}

func (h *handlers) triggerEvent(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	ptr := uint32(stack[0])
	length := uint32(stack[1])

	var action triggerEventAction
	if err := json.Unmarshal(requireRead(mod.Memory(), ptr, length), &action); err != nil {
		panic(fmt.Errorf("imports: decode trigger_event action: %w", err))
	}

	p := hostadapter.Fulfill(nil)
	if err := h.deps.Adapter.TriggerEvent(ctx, action.Event); err != nil {
		p = hostadapter.Reject(err.Error())
	}
	stagePromise(vc.CallResult, p)
}

func (h *handlers) bn254Sign(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	msgPtr := uint32(stack[0])
	msgLen := uint32(stack[1])
	resultPtr := uint32(stack[2])
	resultLen := uint32(stack[3])

	message := requireRead(mod.Memory(), msgPtr, msgLen)

	priv, err := bn254.NewPrivateKey(vc.NodeConfig.BN254PrivateKey)
	if err != nil {
		panic(fmt.Errorf("imports: bn254_sign: %w", err))
	}
	sig := bn254.Sign(priv, message).Bytes()
	if uint32(len(sig)) != resultLen {
		panic(fmt.Errorf("imports: bn254_sign: result buffer length %d does not match signature length %d", resultLen, len(sig)))
	}
	requireWrite(mod.Memory(), resultPtr, sig)
}

func (h *handlers) bn254Verify(ctx context.Context, mod api.Module, stack []uint64) {
	msgPtr := uint32(stack[0])
	msgLen := uint32(stack[1])
	sigPtr := uint32(stack[2])
	sigLen := uint32(stack[3])
	pubPtr := uint32(stack[4])
	pubLen := uint32(stack[5])

	message := requireRead(mod.Memory(), msgPtr, msgLen)
	sigBytes := requireRead(mod.Memory(), sigPtr, sigLen)
	pubBytes := requireRead(mod.Memory(), pubPtr, pubLen)

	ok := false
	if pub, err := bn254.NewPublicKey(pubBytes); err == nil {
		if sig, err := bn254.SignatureFromBytes(sigBytes); err == nil {
			ok = bn254.Verify(pub, message, sig)
		}
	}

	var result uint32
	if ok {
		result = 1
	}
	stack[0] = uint64(result)
}

func (h *handlers) sharedMemoryRead(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	keyPtr := uint32(stack[0])
	keyLen := uint32(stack[1])
	resultPtr := uint32(stack[2])
	resultLen := uint32(stack[3])

	key := requireReadString(mod.Memory(), keyPtr, keyLen)
	value, _ := vc.SharedMemory.Get(key)
	if uint32(len(value)) != resultLen {
		panic(fmt.Errorf("imports: shared_memory_read: result buffer length %d does not match value length %d", resultLen, len(value)))
	}
	requireWrite(mod.Memory(), resultPtr, value)
}

func (h *handlers) sharedMemoryReadLength(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	keyPtr := uint32(stack[0])
	keyLen := uint32(stack[1])

	key := requireReadString(mod.Memory(), keyPtr, keyLen)
	value, _ := vc.SharedMemory.Get(key)
	stack[0] = uint64(int64(len(value)))
}

func (h *handlers) sharedMemoryWrite(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	keyPtr := uint32(stack[0])
	keyLen := uint32(stack[1])
	valPtr := uint32(stack[2])
	valLen := uint32(stack[3])

	key := requireReadString(mod.Memory(), keyPtr, keyLen)
	value := requireRead(mod.Memory(), valPtr, valLen)
	vc.SharedMemory.Put(key, value)
}

func (h *handlers) sharedMemoryContainsKey(ctx context.Context, mod api.Module, stack []uint64) {
	vc := fromContext(ctx)
	keyPtr := uint32(stack[0])
	keyLen := uint32(stack[1])

	key := requireReadString(mod.Memory(), keyPtr, keyLen)
	var result uint32
	if vc.SharedMemory.Contains(key) {
		result = 1
	}
	stack[0] = uint64(result)
}

func (h *handlers) log(ctx context.Context, mod api.Module, stack []uint64) {
	levelPtr := uint32(stack[0])
	levelLen := uint32(stack[1])
	msgPtr := uint32(stack[2])
	msgLen := uint32(stack[3])
	lineInfoPtr := uint32(stack[4])
	lineInfoLen := uint32(stack[5])

	level := requireReadString(mod.Memory(), levelPtr, levelLen)
	msg := requireReadString(mod.Memory(), msgPtr, msgLen)
	lineInfo := requireReadString(mod.Memory(), lineInfoPtr, lineInfoLen)

	if h.deps.Logger != nil {
		h.deps.Logger.Guest(level, msg, lineInfo)
	}
}
