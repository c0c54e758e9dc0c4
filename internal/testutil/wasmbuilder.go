package testutil

// ValType mirrors the WebAssembly value types used by this module's import
// surface: i32 for pointers/short lengths, i64 for the (legacy,
// bit-exact-to-source) wide length parameters spec.md §4.5 inherits from
// the original Rust ABI.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secExport   = 7
	secCode     = 10
	secData     = 11
)

// FuncType is a WASM function type: params -> results.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) encode() []byte {
	var body []byte
	body = append(body, 0x60)
	body = append(body, vecBytes(valTypeBytes(f.Params))...)
	body = append(body, vecBytes(valTypeBytes(f.Results))...)
	return body
}

func valTypeBytes(vs []ValType) []byte {
	out := make([]byte, len(vs))
	for i, v := range vs {
		out[i] = byte(v)
	}
	return out
}

// Func is a locally-defined function body: its type index and instruction
// bytes (without the trailing `end` opcode, which Build appends). It
// declares no locals beyond its parameters; Build emits zero local-decl
// groups.
type Func struct {
	TypeIdx uint32
	Body    []byte
}

// Builder incrementally assembles a minimal WASM module byte-for-byte.
// It only supports the constructs these tests need: imported functions,
// an exported memory, exported functions, and an active data segment.
type Builder struct {
	types   []FuncType
	imports []importEntry
	funcs   []Func
	memMin  uint32
	hasMem  bool
	exports []exportEntry
	data    []dataEntry
}

type importEntry struct {
	module, name string
	typeIdx      uint32
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

type dataEntry struct {
	offset int32
	bytes  []byte
}

func NewBuilder() *Builder { return &Builder{} }

// AddType registers a function type and returns its index.
func (b *Builder) AddType(t FuncType) uint32 {
	b.types = append(b.types, t)
	return uint32(len(b.types) - 1)
}

// AddImportFunc declares an imported function under "env" (or any module
// namespace) and returns its function index. Imported functions are
// indexed before any locally-defined function.
func (b *Builder) AddImportFunc(module, name string, typeIdx uint32) uint32 {
	b.imports = append(b.imports, importEntry{module: module, name: name, typeIdx: typeIdx})
	return uint32(len(b.imports) - 1)
}

// AddMemory declares the module's exported linear memory ("memory"), sized
// minPages 64KiB pages, matching spec.md §4.6 step 6's "bind the guest's
// exported linear memory named memory".
func (b *Builder) AddMemory(minPages uint32) {
	b.memMin = minPages
	b.hasMem = true
	b.exports = append(b.exports, exportEntry{name: "memory", kind: 2, idx: 0})
}

// AddFunc defines a function body and returns its function index
// (imports-first numbering).
func (b *Builder) AddFunc(f Func) uint32 {
	b.funcs = append(b.funcs, f)
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// ExportFunc exports a previously-added function under name.
func (b *Builder) ExportFunc(name string, funcIdx uint32) {
	b.exports = append(b.exports, exportEntry{name: name, kind: 0, idx: funcIdx})
}

// AddData appends an active data segment that, on instantiation, writes
// bytes into memory 0 starting at offset.
func (b *Builder) AddData(offset int32, bytes []byte) {
	b.data = append(b.data, dataEntry{offset: offset, bytes: bytes})
}

// Build serializes the module to its binary representation.
func (b *Builder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		var body []byte
		for _, t := range b.types {
			body = append(body, t.encode()...)
		}
		out = append(out, section(secType, vecBytesN(len(b.types), body))...)
	}

	if len(b.imports) > 0 {
		var body []byte
		for _, imp := range b.imports {
			body = append(body, wasmString(imp.module)...)
			body = append(body, wasmString(imp.name)...)
			body = append(body, 0x00) // function import kind
			body = append(body, uleb128(uint64(imp.typeIdx))...)
		}
		out = append(out, section(secImport, vecBytesN(len(b.imports), body))...)
	}

	if len(b.funcs) > 0 {
		var body []byte
		for _, f := range b.funcs {
			body = append(body, uleb128(uint64(f.TypeIdx))...)
		}
		out = append(out, section(secFunction, vecBytesN(len(b.funcs), body))...)
	}

	if b.hasMem {
		var body []byte
		body = append(body, 0x00) // limits: min only
		body = append(body, uleb128(uint64(b.memMin))...)
		out = append(out, section(secMemory, vecBytesN(1, body))...)
	}

	if len(b.exports) > 0 {
		var body []byte
		for _, e := range b.exports {
			body = append(body, wasmString(e.name)...)
			body = append(body, e.kind)
			body = append(body, uleb128(uint64(e.idx))...)
		}
		out = append(out, section(secExport, vecBytesN(len(b.exports), body))...)
	}

	if len(b.funcs) > 0 {
		var body []byte
		for _, f := range b.funcs {
			code := append(append([]byte{}, f.Body...), 0x0b) // trailing `end`
			entry := append(vecBytes(nil) /* zero local-decl groups */, code...)
			body = append(body, vecBytes(entry)...)
		}
		out = append(out, section(secCode, vecBytesN(len(b.funcs), body))...)
	}

	if len(b.data) > 0 {
		var body []byte
		for _, d := range b.data {
			body = append(body, 0x00) // memory index 0
			body = append(body, 0x41) // i32.const
			body = append(body, sleb128(int64(d.offset))...)
			body = append(body, 0x0b) // end
			body = append(body, vecBytes(d.bytes)...)
		}
		out = append(out, section(secData, vecBytesN(len(b.data), body))...)
	}

	return out
}

func section(id byte, content []byte) []byte {
	return append([]byte{id}, vecBytes(content)...)
}

// vecBytesN prefixes body with a uleb128 element count (not a byte length —
// used for section vectors whose element count is already known).
func vecBytesN(n int, body []byte) []byte {
	return append(uleb128(uint64(n)), body...)
}

// Instruction helpers for assembling Func.Body by hand.

func I32Const(v int32) []byte { return append([]byte{0x41}, sleb128(int64(v))...) }
func I64Const(v int64) []byte { return append([]byte{0x42}, sleb128(v)...) }
func Call(funcIdx uint32) []byte { return append([]byte{0x10}, uleb128(uint64(funcIdx))...) }
func Drop() []byte { return []byte{0x1a} }
func LocalGet(idx uint32) []byte { return append([]byte{0x20}, uleb128(uint64(idx))...) }
func WrapI64ToI32() []byte { return []byte{0xa7} }

func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
