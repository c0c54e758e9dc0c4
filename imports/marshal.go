package imports

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	runtime "github.com/oraclehost/runtime"
	"github.com/oraclehost/runtime/hostadapter"
	"github.com/oraclehost/runtime/vmcontext"
)

// requireRead copies size bytes out of the guest's linear memory at ptr,
// panicking (the same contract the teacher's wazero engine uses for its
// requireRead helper) if the range falls outside memory bounds. A trap here
// means the guest handed the host a corrupt pointer — not a recoverable
// host-side condition.
func requireRead(mem api.Memory, ptr, size uint32) []byte {
	b, ok := mem.Read(ptr, size)
	if !ok {
		panic(fmt.Errorf("%w: read ptr=%d size=%d memSize=%d", runtime.ErrOutOfBounds, ptr, size, mem.Size()))
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

// requireReadString is requireRead plus a UTF-8 validity check, used for
// every import whose argument is a guest-supplied key or identifier rather
// than an opaque byte blob.
func requireReadString(mem api.Memory, ptr, size uint32) string {
	b := requireRead(mem, ptr, size)
	if !utf8.Valid(b) {
		panic(fmt.Errorf("%w: ptr=%d size=%d", runtime.ErrInvalidUTF8, ptr, size))
	}
	return string(b)
}

// requireWrite copies src into the guest's linear memory at ptr, panicking
// if the destination range is out of bounds. Used by the two-phase
// call_result_write / shared_memory_read copy-out paths.
func requireWrite(mem api.Memory, ptr uint32, src []byte) {
	if !mem.Write(ptr, src) {
		panic(fmt.Errorf("%w: write ptr=%d size=%d memSize=%d", runtime.ErrOutOfBounds, ptr, len(src), mem.Size()))
	}
}

// stagePromise JSON-encodes a Promise into the call_result scratch buffer
// and returns its length, ready for the guest's call_result_length /
// call_result_write follow-up (spec.md §4.5).
func stagePromise(buf *vmcontext.CallResultBuffer, p hostadapter.Promise) uint32 {
	encoded, err := json.Marshal(p)
	if err != nil {
		// json.Marshal on a Promise (plain bytes + bool + string) cannot
		// fail; a failure here is a programming error in wirePromiseStatus.
		panic(fmt.Errorf("imports: marshal promise: %w", err))
	}
	buf.Set(encoded)
	return uint32(len(encoded))
}
