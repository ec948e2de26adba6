// Package frame implements the wire framing of SCPI/LXI style instrument sockets.
//
// A request is a command followed by CR LF. A reply is exactly one of:
//
//   - an ASCII line: any bytes not starting with '#', terminated by LF and optionally CR LF.
//   - an IEEE 488.2 definite length block: '#', one digit n, n decimal digits giving the
//     payload length, the payload itself, then an optional CR and a LF.
//
// For example the reply to a waveform query carrying the four bytes 00 FF 0A 80 is
//
//	#14\x00\xff\n\x80\r\n
//
// Note the LF inside the payload: a block is delimited by its declared length, never by
// scanning for terminators.
//
// # Decoders
//
// Reading a reply is delegated to a [Decoder]. [BlockDecoder] classifies each reply as
// text or binary and is what devices use by default, [LineDecoder] treats every reply as a
// line, and [DecoderFunc] adapts any function so callers can plug in their own framing.
//
// # Limits
//
// Both decoders cap ASCII lines at MaxLineLength, DefaultMaxLineLength when unset, and
// BlockDecoder caps block payloads at MaxLength. Exceeding a cap is ErrMalformedFrame.
//
// # Zero digit blocks
//
// The grammar allows n = 0. BlockDecoder accepts it: "#0" followed by the terminator is an
// empty binary reply, the same as "#10".
package frame
