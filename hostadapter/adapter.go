// Package hostadapter defines the polymorphic contract the runtime uses to
// perform every external effect a guest can request (spec.md §4.2): HTTP
// fetch, chain view/call, persistent KV, and event triggering. The core
// never depends on a particular chain or transport; it only depends on
// this interface, which erases that.
package hostadapter

import (
	"context"
	"encoding/json"
	"math/big"
)

// Adapter is implemented once for production (composing httpadapter,
// dbadapter, an injected chain client, and an event sink) and once as an in-memory
// test double (TestAdapter) for the test suite, per spec.md §4.2.
type Adapter interface {
	HTTPFetch(ctx context.Context, url string) Promise
	ChainView(ctx context.Context, chain, contractID, methodName string, args []byte) Promise
	ChainCall(ctx context.Context, chain, contractID, methodName string, args []byte, deposit *big.Int) Promise
	DBGet(ctx context.Context, key string) Promise
	DBSet(ctx context.Context, key string, value []byte) Promise
	TriggerEvent(ctx context.Context, event json.RawMessage) error
}
