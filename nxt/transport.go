package nxt

import "time"

// Transport is the raw byte-stream link to the NXT, typically a Bluetooth
// virtual COM port. The protocol layer treats it as an exclusive,
// half-duplex channel: Conn serializes all access, so implementations do
// not need to be goroutine-safe.
//
// Read and Write block until the full buffer is transferred or the
// configured timeout elapses. Any failure while the transport is not open
// surfaces as a connection fault at the Conn layer.
type Transport interface {
	// Open establishes the link. Opening an already-open transport is a
	// no-op, not an error.
	Open() error

	// Close tears the link down. Closing an already-closed transport is a
	// no-op.
	Close() error

	// IsOpen reports whether the link is currently open.
	IsOpen() bool

	// Write blocks until all of p is written or the timeout elapses.
	Write(p []byte) error

	// Read blocks until exactly len(p) bytes are read or the timeout
	// elapses.
	Read(p []byte) error

	// SetTimeout sets the per-call deadline applied to Read and Write.
	SetTimeout(d time.Duration) error
}
