package emulator

import (
	"bytes"

	"github.com/arloliu/go-lxi/frame"
	"github.com/arloliu/go-lxi/internal/util"
)

// Responder chooses the reply for one command.
//
// cmd is the received line without its terminator. The returned bytes are written verbatim,
// so they must include the reply terminator. A nil or empty reply sends nothing, which lets
// tests simulate an instrument that never answers.
type Responder interface {
	Respond(cmd []byte) []byte
}

// ResponderFunc adapts an ordinary function to the Responder interface.
type ResponderFunc func(cmd []byte) []byte

// Respond calls f(cmd).
func (f ResponderFunc) Respond(cmd []byte) []byte { return f(cmd) }

// Rule maps commands starting with Prefix to Reply.
type Rule struct {
	Prefix string
	Reply  []byte
}

// Table is an ordered list of prefix rules with a fallback reply. The first matching rule
// wins. A Table must not be modified while an emulator is serving it.
type Table struct {
	rules    []Rule
	fallback []byte
}

var _ Responder = (*Table)(nil)

// NewTable creates a table answering unmatched commands with fallback.
func NewTable(fallback []byte, rules ...Rule) *Table {
	return &Table{
		rules:    util.CloneSlice(rules, 0),
		fallback: fallback,
	}
}

// DefaultTable returns the canned replies of the reference emulator.
func DefaultTable() *Table {
	data, _ := BlockReply([]byte{0x00, 0xFF, 0x0A, 0x80})

	return NewTable(TextReply("Error"),
		Rule{Prefix: "*IDN?", Reply: TextReply("Emulator")},
		Rule{Prefix: "DATA?", Reply: data},
	)
}

// Add appends a rule and returns the table.
func (t *Table) Add(prefix string, reply []byte) *Table {
	t.rules = append(t.rules, Rule{Prefix: prefix, Reply: reply})
	return t
}

// Rules returns a copy of the table rules.
func (t *Table) Rules() []Rule { return util.CloneSlice(t.rules, 0) }

// Fallback returns the reply for unmatched commands.
func (t *Table) Fallback() []byte { return t.fallback }

// Respond returns the reply of the first rule whose prefix matches cmd, or the fallback.
func (t *Table) Respond(cmd []byte) []byte {
	for _, rule := range t.rules {
		if bytes.HasPrefix(cmd, []byte(rule.Prefix)) {
			return rule.Reply
		}
	}

	return t.fallback
}

// TextReply returns s terminated by CR LF.
func TextReply(s string) []byte {
	return frame.AppendCommand(make([]byte, 0, len(s)+2), []byte(s))
}

// BlockReply returns payload as a definite length block terminated by CR LF.
func BlockReply(payload []byte) ([]byte, error) {
	block, err := frame.EncodeBlock(payload)
	if err != nil {
		return nil, err
	}

	return append(block, frame.Terminator...), nil
}
