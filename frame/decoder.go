package frame

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// BlockPrefix is the first byte of a definite length block.
	BlockPrefix = '#'

	// MaxBlockLength is the largest payload a nine digit length field can declare.
	MaxBlockLength = 999_999_999

	// DefaultMaxLineLength caps an ASCII line, terminator excluded, when a decoder sets no
	// limit of its own.
	DefaultMaxLineLength = 16 << 20

	// payloadChunk bounds the up-front allocation for a block payload, so a bogus length
	// field can't make the decoder allocate memory the peer never sends.
	payloadChunk = 64 * 1024
)

// Decoder consumes exactly one reply frame from r.
//
// Implementations must not read past the end of the frame: the next call on the same reader
// starts at the next reply. A decoder returns an error wrapping ErrConnectionClosed when the
// stream ends inside a frame and ErrMalformedFrame when the bytes violate its grammar; other
// read errors, timeouts included, are returned wrapped but otherwise untouched.
type Decoder interface {
	Decode(r *bufio.Reader) (Response, error)
}

// DecoderFunc adapts an ordinary function to the Decoder interface.
type DecoderFunc func(r *bufio.Reader) (Response, error)

// Decode calls f(r).
func (f DecoderFunc) Decode(r *bufio.Reader) (Response, error) { return f(r) }

// LineDecoder reads every reply as an ASCII line, including lines starting with '#'.
type LineDecoder struct {
	// MaxLineLength caps the line length. Zero means DefaultMaxLineLength.
	MaxLineLength int
}

var _ Decoder = LineDecoder{}

// Decode reads through the next LF and returns the line as a text Response.
func (d LineDecoder) Decode(r *bufio.Reader) (Response, error) {
	line, err := readLine(r, "line", d.MaxLineLength)
	if err != nil {
		return Response{}, err
	}

	return Text(line), nil
}

// BlockDecoder reads a reply as either an ASCII line or a definite length block, depending
// on whether its first byte is '#'.
type BlockDecoder struct {
	// MaxLength caps the payload length a block may declare. Zero means MaxBlockLength.
	MaxLength int
	// MaxLineLength caps text replies. Zero means DefaultMaxLineLength.
	MaxLineLength int
}

var _ Decoder = BlockDecoder{}

// Decode reads one reply frame and classifies it.
func (d BlockDecoder) Decode(r *bufio.Reader) (Response, error) {
	first, err := r.ReadByte()
	if err != nil {
		return Response{}, readErr(err, "reply")
	}

	if first != BlockPrefix {
		_ = r.UnreadByte() // always valid right after ReadByte

		line, err := readLine(r, "line", d.MaxLineLength)
		if err != nil {
			return Response{}, err
		}

		return Text(line), nil
	}

	payload, err := d.readBlock(r)
	if err != nil {
		return Response{}, err
	}

	return Binary(payload), nil
}

// readBlock reads the part of a block following the '#' prefix, terminator included.
func (d BlockDecoder) readBlock(r *bufio.Reader) ([]byte, error) {
	digit, err := r.ReadByte()
	if err != nil {
		return nil, readErr(err, "block digit count")
	}

	if digit < '0' || digit > '9' {
		return nil, fmt.Errorf("%w: invalid block digit count %q", ErrMalformedFrame, digit)
	}

	length := 0
	if n := int(digit - '0'); n > 0 {
		field := make([]byte, n)
		if _, err := io.ReadFull(r, field); err != nil {
			return nil, readErr(err, "block length")
		}

		v, err := strconv.ParseUint(string(field), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid block length %q", ErrMalformedFrame, field)
		}
		length = int(v)
	}

	maxLength := d.MaxLength
	if maxLength <= 0 {
		maxLength = MaxBlockLength
	}
	if length > maxLength {
		return nil, fmt.Errorf("%w: block length %d exceeds maximum %d", ErrMalformedFrame, length, maxLength)
	}

	var payload bytes.Buffer
	payload.Grow(min(length, payloadChunk))
	if _, err := io.CopyN(&payload, r, int64(length)); err != nil {
		return nil, readErr(err, "block payload")
	}

	tail, err := readLine(r, "block terminator", d.MaxLineLength)
	if err != nil {
		return nil, err
	}
	if len(tail) > 0 {
		return nil, fmt.Errorf("%w: unexpected trailing bytes after binary block: %q", ErrMalformedFrame, tail)
	}

	if payload.Len() == 0 {
		return []byte{}, nil
	}

	return payload.Bytes(), nil
}

// readLine reads through the next LF and returns the bytes before it with one terminator,
// LF or CR LF, removed. A line longer than maxLength is rejected as soon as the limit is
// passed, without waiting for its LF. Zero means DefaultMaxLineLength.
func readLine(r *bufio.Reader, what string, maxLength int) ([]byte, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLineLength
	}

	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)

		switch {
		case err == nil:
			line = TrimTerminator(line)
			if len(line) > maxLength {
				return nil, lineTooLong(what, maxLength)
			}

			return line, nil
		case !errors.Is(err, bufio.ErrBufferFull):
			return nil, readErr(err, what)
		case len(line) > maxLength+1: // one byte of slack for a CR before the LF
			return nil, lineTooLong(what, maxLength)
		}
	}
}

func lineTooLong(what string, maxLength int) error {
	return fmt.Errorf("%w: %s exceeds maximum length %d", ErrMalformedFrame, what, maxLength)
}

// TrimTerminator removes one trailing LF and then at most one CR preceding it.
// Interior bytes are never touched, so "a\r\r\n" becomes "a\r".
func TrimTerminator(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}

	return line
}

// readErr maps the end of the stream inside a frame to ErrConnectionClosed.
func readErr(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: stream ended while reading %s", ErrConnectionClosed, what)
	}

	return fmt.Errorf("read %s: %w", what, err)
}
