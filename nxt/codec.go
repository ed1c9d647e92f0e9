package nxt

import "strings"

// Wire codec for fixed-layout telegram fields. All multi-byte integers on
// the NXT wire are little-endian. Out-of-range offsets are programmer
// errors and panic via the runtime bounds check.

func putUint16(buf []byte, offset int, v uint16) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
}

func getUint16(buf []byte, offset int) uint16 {
	return uint16(buf[offset]) | uint16(buf[offset+1])<<8
}

func putUint32(buf []byte, offset int, v uint32) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v >> 16)
	buf[offset+3] = byte(v >> 24)
}

func getUint32(buf []byte, offset int) uint32 {
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
}

func putInt16(buf []byte, offset int, v int16) {
	putUint16(buf, offset, uint16(v))
}

func getInt16(buf []byte, offset int) int16 {
	return int16(getUint16(buf, offset))
}

func putInt32(buf []byte, offset int, v int32) {
	putUint32(buf, offset, uint32(v))
}

func getInt32(buf []byte, offset int) int32 {
	return int32(getUint32(buf, offset))
}

// putString writes s into a fixed-size ASCII field, NUL-padded. The caller
// must have validated len(s) < size; excess bytes would silently corrupt
// adjacent fields otherwise.
func putString(buf []byte, offset, size int, s string) {
	field := buf[offset : offset+size]
	n := copy(field, s)
	for i := n; i < size; i++ {
		field[i] = 0
	}
}

// getString reads a fixed-size ASCII field. Trailing NUL, '?' and space
// bytes are all trimmed: fields stored in flash may be padded with either
// NUL or '?' depending on firmware version.
func getString(buf []byte, offset, size int) string {
	return strings.TrimRight(string(buf[offset:offset+size]), "\x00? ")
}
