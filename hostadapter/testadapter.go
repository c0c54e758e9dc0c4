package hostadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
)

// TestAdapter is an in-memory Adapter double for the test suite (spec.md
// §4.2's "test-double implementation"). HTTP responses are keyed by URL;
// any URL not present in Responses is rejected, and the literal sentinel
// "fail!" (spec.md §8 scenario 4) is always rejected regardless of
// Responses, matching the behavior asserted by the scenario.
type TestAdapter struct {
	mu sync.Mutex

	// Responses maps a URL to the body http_fetch should return.
	Responses map[string][]byte

	// ChainViewResponses/ChainCallResponses key on "chain/contract/method".
	ChainViewResponses map[string][]byte
	ChainCallResponses map[string][]byte

	// DB is a trivial in-memory persistent store, distinct from shared
	// memory, backing db_get/db_set for tests.
	DB map[string][]byte

	// Events records every TriggerEvent call for assertions.
	Events []json.RawMessage
}

// NewTestAdapter returns a ready-to-use TestAdapter with empty tables.
func NewTestAdapter() *TestAdapter {
	return &TestAdapter{
		Responses:          make(map[string][]byte),
		ChainViewResponses: make(map[string][]byte),
		ChainCallResponses: make(map[string][]byte),
		DB:                 make(map[string][]byte),
	}
}

func chainKey(chain, contractID, method string) string {
	return chain + "/" + contractID + "/" + method
}

func (a *TestAdapter) HTTPFetch(_ context.Context, url string) Promise {
	if url == "fail!" {
		return Reject("adapter rejected fetch for url \"fail!\"")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.Responses[url]
	if !ok {
		return Reject(fmt.Sprintf("no canned response for url %q", url))
	}
	return Fulfill(body)
}

func (a *TestAdapter) ChainView(_ context.Context, chain, contractID, methodName string, _ []byte) Promise {
	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.ChainViewResponses[chainKey(chain, contractID, methodName)]
	if !ok {
		return Reject("no canned chain view response")
	}
	return Fulfill(body)
}

func (a *TestAdapter) ChainCall(_ context.Context, chain, contractID, methodName string, _ []byte, _ *big.Int) Promise {
	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.ChainCallResponses[chainKey(chain, contractID, methodName)]
	if !ok {
		return Reject("no canned chain call response")
	}
	return Fulfill(body)
}

func (a *TestAdapter) DBGet(_ context.Context, key string) Promise {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.DB[key]
	if !ok {
		return Reject(fmt.Sprintf("key %q not found", key))
	}
	return Fulfill(v)
}

func (a *TestAdapter) DBSet(_ context.Context, key string, value []byte) Promise {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	a.DB[key] = stored
	return Fulfill(nil)
}

func (a *TestAdapter) TriggerEvent(_ context.Context, event json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Events = append(a.Events, event)
	return nil
}

var _ Adapter = (*TestAdapter)(nil)
