package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneSlice(t *testing.T) {
	require := require.New(t)

	src := []byte{1, 2, 3}

	clone := CloneSlice(src, 0)
	require.Equal(src, clone)
	clone[0] = 9
	require.Equal(byte(1), src[0])

	require.Len(CloneSlice(src, 5), 5)
	require.Equal(src[:2], CloneSlice(src, 2))
	require.Empty(CloneSlice([]byte(nil), 0))
}

func TestClamp(t *testing.T) {
	require := require.New(t)

	require.Equal(50, Clamp(50, -100, 100))
	require.Equal(100, Clamp(150, -100, 100))
	require.Equal(-100, Clamp(-150, -100, 100))
	require.Equal(-100, Clamp(-100, -100, 100))
	require.Equal(int64(0xFFFF), Clamp(int64(100000), 0, 0xFFFF))

	require.Panics(func() { Clamp(0, 1, -1) })
}
