package frame

import (
	"fmt"
)

// Kind classifies a decoded reply.
type Kind uint8

const (
	// TextKind is an ASCII line with its terminator stripped.
	TextKind Kind = iota + 1
	// BinaryKind is the payload of a definite length block.
	BinaryKind
)

func (k Kind) String() string {
	switch k {
	case TextKind:
		return "text"
	case BinaryKind:
		return "binary"
	default:
		return "unknown"
	}
}

// Response is one decoded reply frame.
//
// The zero Response has no kind and is what decoders return alongside an error.
type Response struct {
	kind Kind
	data []byte
}

// Text returns a text Response holding data. data is not copied.
func Text(data []byte) Response {
	if data == nil {
		data = []byte{}
	}

	return Response{kind: TextKind, data: data}
}

// Binary returns a binary Response holding data. data is not copied.
func Binary(data []byte) Response {
	if data == nil {
		data = []byte{}
	}

	return Response{kind: BinaryKind, data: data}
}

// Kind returns the classification of the reply.
func (r Response) Kind() Kind { return r.kind }

// IsText reports whether the reply was an ASCII line.
func (r Response) IsText() bool { return r.kind == TextKind }

// IsBinary reports whether the reply was a definite length block.
func (r Response) IsBinary() bool { return r.kind == BinaryKind }

// IsZero reports whether r is the zero Response.
func (r Response) IsZero() bool { return r.kind == 0 }

// Bytes returns the reply payload. The caller owns the returned slice.
func (r Response) Bytes() []byte { return r.data }

// Len returns the payload length in bytes.
func (r Response) Len() int { return len(r.data) }

// String returns the line of a text reply, or a short summary of a binary reply.
func (r Response) String() string {
	switch r.kind {
	case TextKind:
		return string(r.data)
	case BinaryKind:
		return fmt.Sprintf("binary(%d bytes)", len(r.data))
	default:
		return ""
	}
}
