// Package runtime is the oracle-node WASM sandbox host's data model: the
// Job a worker executes, the NodeConfig handed to every invocation, the
// VmResult a dispatch returns, and the sentinel errors the setup and
// marshalling paths surface (spec.md §3, §6, §7).
//
// It is deliberately a leaf package with no dependency on the rest of the
// runtime (imports, vmcontext, workerpool, wazeroengine all import this
// package, never the reverse), so every other component can share this
// data model without an import cycle. The composition root that wires
// those components together lives in the engine package.
package runtime
