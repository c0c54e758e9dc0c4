package imports

// Name identifies one of the seventeen host imports a guest module may
// bind against (spec.md §4.5). Capability filtering happens at
// instantiation time: an import outside the program's CapabilitySet is
// simply not registered, so the guest's instantiation fails the same way
// it would against any other undefined import.
type Name string

const (
	CallResultLength       Name = "call_result_length"
	CallResultWrite        Name = "call_result_write"
	ExecutionResult        Name = "execution_result"
	HTTPFetch              Name = "http_fetch"
	ChainView              Name = "chain_view"
	ChainCall              Name = "chain_call"
	DBGet                  Name = "db_get"
	DBSet                  Name = "db_set"
	P2PBroadcast           Name = "p2p_broadcast"
	TriggerEvent           Name = "trigger_event"
	BN254Sign              Name = "bn254_sign"
	BN254Verify            Name = "bn254_verify"
	SharedMemoryRead       Name = "shared_memory_read"
	SharedMemoryReadLength Name = "shared_memory_read_length"
	SharedMemoryWrite      Name = "shared_memory_write"
	SharedMemoryContains   Name = "shared_memory_contains_key"
	ConsoleLog             Name = "_log"
)

// All enumerates every import the runtime knows how to serve, in the
// fixed order the wazero host module is built in.
var All = []Name{
	CallResultLength, CallResultWrite, ExecutionResult,
	HTTPFetch, ChainView, ChainCall,
	DBGet, DBSet,
	P2PBroadcast, TriggerEvent,
	BN254Sign, BN254Verify,
	SharedMemoryRead, SharedMemoryReadLength, SharedMemoryWrite, SharedMemoryContains,
	ConsoleLog,
}

// CapabilitySet is the subset of imports a given program is allowed to
// bind. A nil or empty set is treated as "allow everything" — the
// zero-value CapabilitySet is the permissive default a program with no
// declared restrictions gets.
type CapabilitySet map[Name]struct{}

// NewCapabilitySet builds a set from the given names.
func NewCapabilitySet(names ...Name) CapabilitySet {
	set := make(CapabilitySet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Allows reports whether name may be registered for this program.
func (s CapabilitySet) Allows(name Name) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[name]
	return ok
}

// CoreSet is the minimal surface every guest gets regardless of role
// (original_source's CORE_IMPORTS): result plumbing, shared memory, and
// logging, but no network or chain effects.
var CoreSet = NewCapabilitySet(
	CallResultLength, CallResultWrite, ExecutionResult,
	SharedMemoryRead, SharedMemoryReadLength, SharedMemoryWrite, SharedMemoryContains,
	ConsoleLog,
)

// DataRequestSet is CoreSet plus the external-effect imports a
// data-request (oracle fetch) program needs (original_source's
// DATAREQUEST_IMPORTS): HTTP, chain reads/writes, and KV persistence.
var DataRequestSet = union(CoreSet, NewCapabilitySet(
	HTTPFetch, ChainView, ChainCall, DBGet, DBSet,
))

// AggregationSet is CoreSet plus the consensus-facing imports an
// aggregation (fisherman/consensus) program needs (original_source's
// AGGREGATION_IMPORTS): P2P broadcast, event triggering, BN254
// sign/verify, and KV persistence, but no direct HTTP or chain access.
var AggregationSet = union(CoreSet, NewCapabilitySet(
	P2PBroadcast, TriggerEvent, BN254Sign, BN254Verify, DBGet, DBSet,
))

func union(sets ...CapabilitySet) CapabilitySet {
	out := make(CapabilitySet)
	for _, s := range sets {
		for n := range s {
			out[n] = struct{}{}
		}
	}
	return out
}
