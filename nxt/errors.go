package nxt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates that a send was attempted while the
	// transport is not open.
	ErrNotConnected = errors.New("not connected")

	// ErrTransportNil indicates that a nil Transport was provided.
	ErrTransportNil = errors.New("transport is nil")
)

// TransportError wraps a failure of the underlying byte-stream transport
// (open, close, read, write, or timeout). It is distinct from ProtocolError:
// the bytes never made it across, or never arrived.
type TransportError struct {
	Op  string // "open", "close", "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nxt: transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates that the device answered a command with a
// non-success status byte. It carries the requesting opcode and the status
// so callers can diagnose without inspecting raw bytes.
type ProtocolError struct {
	Opcode OpCode
	Status Status
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("nxt: command %s failed: %s (status 0x%02X)", e.Opcode, e.Status, byte(e.Status))
}

// FramingError indicates a malformed reply: the reply marker or the echoed
// opcode did not match the exchange in progress. The connection state should
// be considered desynchronized.
type FramingError struct {
	Opcode OpCode
	Field  string // "reply marker" or "opcode echo"
	Want   byte
	Got    byte
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("nxt: command %s reply has bad %s: want 0x%02X, got 0x%02X",
		e.Opcode, e.Field, e.Want, e.Got)
}

// EchoError indicates that the device echoed a different port, handle,
// module ID, or name than the request carried. The exchange itself framed
// correctly, but the protocol state is desynchronized; the call is fatal and
// must not be silently retried.
type EchoError struct {
	Opcode OpCode
	Field  string
	Want   string
	Got    string
}

func (e *EchoError) Error() string {
	return fmt.Sprintf("nxt: command %s echoed %s %s, want %s", e.Opcode, e.Field, e.Got, e.Want)
}

// ValidationError indicates an out-of-range or oversized parameter detected
// before any bytes were sent. Validation faults are never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("nxt: invalid %s: %s", e.Field, e.Reason)
}

func echoByteError(op OpCode, field string, want, got byte) *EchoError {
	return &EchoError{
		Opcode: op,
		Field:  field,
		Want:   fmt.Sprintf("0x%02X", want),
		Got:    fmt.Sprintf("0x%02X", got),
	}
}
