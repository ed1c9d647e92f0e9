package nxt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecIntegerRoundTrip(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, 8)

	for _, v := range []uint16{0, 1, 0x1234, 0x8000, 0xFFFF} {
		putUint16(buf, 2, v)
		require.Equal(v, getUint16(buf, 2))
	}

	for _, v := range []uint32{0, 1, 0xDEADBEEF, 0x80000000, 0xFFFFFFFF} {
		putUint32(buf, 1, v)
		require.Equal(v, getUint32(buf, 1))
	}

	for _, v := range []int16{-32768, -1, 0, 1, 32767} {
		putInt16(buf, 0, v)
		require.Equal(v, getInt16(buf, 0))
	}

	for _, v := range []int32{-2147483648, -360, 0, 360, 2147483647} {
		putInt32(buf, 4, v)
		require.Equal(v, getInt32(buf, 4))
	}
}

func TestCodecLittleEndianLayout(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, 6)
	putUint16(buf, 0, 0x0102)
	putUint32(buf, 2, 0x0A0B0C0D)

	require.Equal([]byte{0x02, 0x01, 0x0D, 0x0C, 0x0B, 0x0A}, buf)
	require.Equal(int32(-1), getInt32([]byte{0xFF, 0xFF, 0xFF, 0xFF}, 0))
}

func TestCodecStringRoundTrip(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, fileNameField)
	putString(buf, 0, fileNameField, "DEMO.RXE")

	require.Equal(byte('D'), buf[0])
	// NUL padding after the content.
	require.Equal(byte(0), buf[8])
	require.Equal(byte(0), buf[fileNameField-1])
	require.Equal("DEMO.RXE", getString(buf, 0, fileNameField))
}

func TestCodecStringTrimsFlashPadding(t *testing.T) {
	require := require.New(t)

	// Flash-stored fields may be padded with NUL or '?' depending on
	// firmware version; trailing spaces are trimmed too.
	require.Equal("NXT", getString([]byte("NXT\x00\x00\x00"), 0, 6))
	require.Equal("NXT", getString([]byte("NXT???"), 0, 6))
	require.Equal("NXT", getString([]byte("NXT   "), 0, 6))
	require.Equal("NXT", getString([]byte("NXT? \x00"), 0, 6))
	require.Equal("", getString([]byte("\x00\x00\x00"), 0, 3))
}

func TestCodecStringOverwritesStaleField(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, 8)
	putString(buf, 0, 8, "LONGEST")
	putString(buf, 0, 8, "AB")

	require.Equal("AB", getString(buf, 0, 8))
}
