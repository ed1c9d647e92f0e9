// Package nxt implements the LEGO Mindstorms NXT command protocol over a
// serial byte-stream transport (typically a Bluetooth virtual COM port).
//
// The package is organized in three layers:
//
//   - Wire codec: little-endian fixed-width integers and NUL-padded ASCII
//     fields at fixed offsets within a telegram.
//   - Transport framing: each telegram is prefixed with a 2-byte
//     little-endian length. Conn serializes request/reply exchanges and
//     validates the reply marker, opcode echo, and status byte.
//   - Command catalog: one method per device operation, split into direct
//     commands (real-time control, opcodes 0x00-0x13) and system commands
//     (device management, opcodes 0x80 and above), per the LEGO Mindstorms
//     NXT Bluetooth Developer Kit, Appendix 1 and 2.
//
// Device-side errors surface as *ProtocolError carrying the opcode and the
// device status byte. The file-system and module lookup commands translate
// their "not found" statuses into Found=false results instead of errors;
// every other non-success status is a fault.
//
// Conn does not open serial ports itself; it drives any Transport
// implementation. See the serialport package for a real one.
package nxt
