package frame

import (
	"fmt"
	"strconv"
)

// Terminator ends every request frame.
const Terminator = "\r\n"

// AppendCommand appends payload followed by CR LF to dst and returns the extended slice.
func AppendCommand(dst []byte, payload []byte) []byte {
	dst = append(dst, payload...)
	return append(dst, Terminator...)
}

// AppendBlock appends payload to dst as a definite length block without a terminator,
// using the fewest length digits that hold len(payload).
//
// A block can be a reply on its own (followed by Terminator) or the argument of a command,
// e.g. ":TRACE:DATA " followed by the block.
func AppendBlock(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxBlockLength {
		return dst, fmt.Errorf("%w: %d bytes, maximum %d", ErrBlockTooLarge, len(payload), MaxBlockLength)
	}

	length := strconv.Itoa(len(payload))
	dst = append(dst, BlockPrefix, byte('0'+len(length)))
	dst = append(dst, length...)

	return append(dst, payload...), nil
}

// EncodeBlock returns payload encoded as a definite length block without a terminator.
func EncodeBlock(payload []byte) ([]byte, error) {
	return AppendBlock(make([]byte, 0, len(payload)+11), payload)
}
