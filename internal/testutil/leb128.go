// Package testutil hand-assembles minimal WebAssembly binaries for tests
// that need a real guest module to instantiate against the host import
// surface, without depending on a WASM toolchain being present at test
// time (the harness this module is built for never invokes `go test`
// directly, but the fixtures are written to be correct if it does).
package testutil

// uleb128 encodes v as unsigned LEB128, the integer encoding WebAssembly
// uses for section/vector lengths and type/function indices.
func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// sleb128 encodes v as signed LEB128, used for i32.const/i64.const operands.
func sleb128(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// vec length-prefixes a byte sequence with its uleb128-encoded length, the
// "vec(...)" production used throughout the module binary format.
func vecBytes(b []byte) []byte {
	return append(uleb128(uint64(len(b))), b...)
}

func wasmString(s string) []byte {
	return vecBytes([]byte(s))
}
