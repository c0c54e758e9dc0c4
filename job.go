package runtime

// Job is the unit of work handed from the supervisor to a worker
// (spec.md §3 "Job"). It is owned exclusively by the worker for the
// duration of one invocation and destroyed on return.
type Job struct {
	// ProgramName identifies which managed WASM binary to run, e.g.
	// "consensus" or "fisherman".
	ProgramName string

	// Args are passed to the guest's entry point as WASI command-line
	// arguments, in order.
	Args []string

	// StartFunc overrides the WASI default entry point ("_start") when set.
	StartFunc string

	Debug bool
}

// EntryPoint resolves the export name to call, defaulting to the WASI
// command-module convention (spec.md §4.6 step 1).
func (j Job) EntryPoint() string {
	if j.StartFunc != "" {
		return j.StartFunc
	}
	return "_start"
}

// NodeConfig is the immutable, read-only configuration shared with every
// guest invocation (spec.md §3 "node_config"). It is constructed by the
// (out-of-scope) config loader and handed to the runtime unchanged.
type NodeConfig struct {
	ContractID string

	Ed25519PublicKey []byte // raw 32-byte Ed25519 public key
	BN254PublicKey   []byte // uncompressed BN254 G2 public key
	BN254PrivateKey  []byte // BN254 scalar private key, used only by bn254_sign
}
