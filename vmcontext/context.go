// Package vmcontext implements the per-invocation execution context
// (spec.md §4.4): the guest memory handle, result and call-result scratch
// buffers, the node's immutable config, and the shared handles to the P2P
// sender and shared-memory store.
package vmcontext

import (
	"sync"

	"github.com/tetratelabs/wazero/api"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/p2p"
	"github.com/oraclehost/runtime/sharedmemory"
)

// ResultBuffer is the scratch buffer written once by the guest's
// execution_result import (spec.md §3). Empty if the guest never calls it.
type ResultBuffer struct {
	mu    sync.Mutex
	bytes []byte
}

func (r *ResultBuffer) Set(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	r.mu.Lock()
	r.bytes = cp
	r.mu.Unlock()
}

func (r *ResultBuffer) Get() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bytes == nil {
		return nil
	}
	out := make([]byte, len(r.bytes))
	copy(out, r.bytes)
	return out
}

// CallResultBuffer is the scratch buffer effect imports stage their
// PromiseStatus JSON into, read back by the guest through the two-phase
// call_result_length/call_result_write protocol (spec.md §4.5).
type CallResultBuffer struct {
	mu    sync.RWMutex
	bytes []byte
}

func (c *CallResultBuffer) Set(b []byte) {
	c.mu.Lock()
	c.bytes = b
	c.mu.Unlock()
}

func (c *CallResultBuffer) Len() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint32(len(c.bytes))
}

// CopyInto copies exactly n bytes of the staged value into dst, failing if
// n does not match the staged length — spec.md §4.5's "the length returned
// by the first call must equal the length the second call copies".
func (c *CallResultBuffer) CopyInto(dst []byte, n uint32) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if uint32(len(c.bytes)) != n {
		return runtime.ErrResultLengthMismatch
	}
	copy(dst, c.bytes)
	return nil
}

// Context is the per-invocation execution state (spec.md §4.4). It is
// exclusively owned by one in-flight invocation, but its NodeConfig,
// SharedMemory, and P2PSender fields are reference-shared with every other
// context on the worker pool.
type Context struct {
	Result     *ResultBuffer
	CallResult *CallResultBuffer

	memory api.Memory // installed post-instantiation; nil access panics, see Memory()

	NodeConfig   runtime.NodeConfig
	SharedMemory *sharedmemory.Store
	P2PSender    p2p.Sender
}

// New constructs a Context ready for a single invocation. InstallMemory
// must be called once the guest's exported memory is available, before any
// host import touches it.
func New(cfg runtime.NodeConfig, store *sharedmemory.Store, sender p2p.Sender) *Context {
	return &Context{
		Result:       &ResultBuffer{},
		CallResult:   &CallResultBuffer{},
		NodeConfig:   cfg,
		SharedMemory: store,
		P2PSender:    sender,
	}
}

// InstallMemory binds the guest's exported linear memory. Spec.md §4.4:
// "memory must be installed between instantiation and first guest-to-host
// call; any earlier access is a programmer error".
func (c *Context) InstallMemory(m api.Memory) {
	c.memory = m
}

// Memory returns the installed guest memory, panicking if it has not been
// installed yet — by design, per spec.md §4.4, this is a programmer error,
// not a recoverable condition.
func (c *Context) Memory() api.Memory {
	if c.memory == nil {
		panic(runtime.ErrMemoryNotInstalled)
	}
	return c.memory
}
