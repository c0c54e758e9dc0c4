// Package p2p provides the one-way broadcast channel a guest's
// p2p_broadcast import publishes onto (spec.md §4.2, §4.5). The runtime
// core only depends on the Sender interface; wiring an actual gossip
// layer underneath it is out of scope for this module.
package p2p

import "context"

// Sender is the outbound half of the node's P2P broadcast surface. Send
// must not block past ctx's deadline; a full or closed outbound queue is a
// Sender-level concern, not the guest's.
type Sender interface {
	Send(ctx context.Context, message []byte) error
}

// ChannelSender is a Sender backed by a buffered Go channel, the natural
// analogue of the Rust original's bounded mpsc sender (spec.md §4.4's
// "p2p_sender"). It is the implementation used both by tests and by a
// production node that drains Messages into its real gossip transport.
type ChannelSender struct {
	ch chan []byte
}

// NewChannelSender creates a ChannelSender with the given outbound buffer
// capacity. A capacity of 0 makes Send block until something drains
// Messages.
func NewChannelSender(capacity int) *ChannelSender {
	return &ChannelSender{ch: make(chan []byte, capacity)}
}

// Send enqueues message, blocking until there is room or ctx is done.
func (s *ChannelSender) Send(ctx context.Context, message []byte) error {
	cp := make([]byte, len(message))
	copy(cp, message)
	select {
	case s.ch <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages exposes the receive side for whatever drains broadcasts into
// the real transport (or, in tests, a plain consumer goroutine).
func (s *ChannelSender) Messages() <-chan []byte {
	return s.ch
}

var _ Sender = (*ChannelSender)(nil)
