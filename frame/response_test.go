package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponse(t *testing.T) {
	require := require.New(t)

	var zero Response
	require.True(zero.IsZero())
	require.Equal("unknown", zero.Kind().String())
	require.Empty(zero.String())

	text := Text([]byte("Emulator"))
	require.False(text.IsZero())
	require.True(text.IsText())
	require.False(text.IsBinary())
	require.Equal("text", text.Kind().String())
	require.Equal("Emulator", text.String())
	require.Equal(8, text.Len())

	bin := Binary([]byte{0x00, 0xFF})
	require.True(bin.IsBinary())
	require.Equal("binary", bin.Kind().String())
	require.Equal("binary(2 bytes)", bin.String())

	require.NotNil(Text(nil).Bytes())
	require.NotNil(Binary(nil).Bytes())
}
