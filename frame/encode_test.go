package frame

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendCommand(t *testing.T) {
	require := require.New(t)

	require.Equal([]byte("*IDN?\r\n"), AppendCommand(nil, []byte("*IDN?")))
	require.Equal([]byte("\r\n"), AppendCommand(nil, nil))

	buf := AppendCommand([]byte("*RST\r\n"), []byte(":MEAS?"))
	require.Equal([]byte("*RST\r\n:MEAS?\r\n"), buf)
}

func TestEncodeBlock(t *testing.T) {
	tests := []struct {
		payload []byte
		want    string
	}{
		{nil, "#10"},
		{[]byte{0x00, 0xFF, 0x0A, 0x80}, "#14\x00\xff\n\x80"},
		{bytes.Repeat([]byte{'x'}, 10), "#210" + string(bytes.Repeat([]byte{'x'}, 10))},
		{bytes.Repeat([]byte{'y'}, 1234), "#41234" + string(bytes.Repeat([]byte{'y'}, 1234))},
	}

	for _, tt := range tests {
		block, err := EncodeBlock(tt.payload)
		require.NoError(t, err)
		require.Equal(t, tt.want, string(block))
	}
}

func TestAppendBlock_Command(t *testing.T) {
	require := require.New(t)

	cmd, err := AppendBlock([]byte(":TRACE:DATA "), []byte("abc"))
	require.NoError(err)
	require.Equal(":TRACE:DATA #13abc", string(cmd))
}

func TestEncodeBlock_RoundTrip(t *testing.T) {
	require := require.New(t)

	payload := []byte("\r\n#\x00\n")
	block, err := EncodeBlock(payload)
	require.NoError(err)

	resp, err := BlockDecoder{}.Decode(bufio.NewReader(bytes.NewReader(append(block, Terminator...))))
	require.NoError(err)
	require.True(resp.IsBinary())
	require.Equal(payload, resp.Bytes())
}
