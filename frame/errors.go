package frame

import "errors"

var (
	// ErrMalformedFrame indicates that a reply violates the framing grammar, e.g. a non-digit
	// length digit count, a length field that is not a decimal number, or bytes between a
	// block payload and its terminator.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrConnectionClosed indicates that the peer closed the stream before a complete frame
	// was read. A partially read frame is never returned as a successful reply.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrBlockTooLarge indicates that a payload can't be expressed as a definite length block,
	// which carries at most nine length digits.
	ErrBlockTooLarge = errors.New("block payload too large")
)
