package hostadapter

import "encoding/json"

// Promise is the two-variant outcome every Adapter method returns
// (spec.md §4.2 failure model): fulfilled with bytes, or rejected with a
// message. The runtime serializes this to call_result as a PromiseStatus.
type Promise struct {
	Fulfilled bool
	Value     []byte // meaningful iff Fulfilled
	Reason    string // meaningful iff !Fulfilled
}

// Fulfill builds a successful Promise.
func Fulfill(value []byte) Promise {
	return Promise{Fulfilled: true, Value: value}
}

// Reject builds a failed Promise.
func Reject(reason string) Promise {
	return Promise{Reason: reason}
}

// wirePromiseStatus is the JSON shape written to call_result. It mirrors
// spec.md §6's tagged union (Pending/Fulfilled(bytes?)/Rejected(bytes))
// using a flat, self-describing shape so it round-trips through
// encoding/json without a custom (Un)MarshalJSON — an explicit choice
// documented in DESIGN.md.
type wirePromiseStatus struct {
	Fulfilled bool   `json:"fulfilled"`
	Value     []byte `json:"value,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// MarshalJSON encodes the Promise as the PromiseStatus wire shape that
// call_result stages for the guest to read (spec.md §6).
func (p Promise) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePromiseStatus{
		Fulfilled: p.Fulfilled,
		Value:     p.Value,
		Reason:    p.Reason,
	})
}

// UnmarshalJSON decodes a PromiseStatus wire value, used by guest-side test
// fixtures and round-trip tests.
func (p *Promise) UnmarshalJSON(data []byte) error {
	var w wirePromiseStatus
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Fulfilled = w.Fulfilled
	p.Value = w.Value
	p.Reason = w.Reason
	return nil
}
