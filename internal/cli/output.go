package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-lxi/frame"
)

const (
	outputText = "text"
	outputHex  = "hex"
	outputYAML = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case outputText, outputHex, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q, want text, hex or yaml", format)
	}
}

// replyDoc is the yaml rendering of a reply.
type replyDoc struct {
	Kind   string `yaml:"kind"`
	Length int    `yaml:"length"`
	Text   string `yaml:"text,omitempty"`
	Hex    string `yaml:"hex,omitempty"`
}

// formatReply renders resp in the given output format. The result always ends with a newline.
func formatReply(resp frame.Response, format string) (string, error) {
	switch format {
	case outputHex:
		return hex.EncodeToString(resp.Bytes()) + "\n", nil

	case outputYAML:
		doc := replyDoc{Kind: resp.Kind().String(), Length: resp.Len()}
		if resp.IsText() {
			doc.Text = resp.String()
		} else {
			doc.Hex = hex.EncodeToString(resp.Bytes())
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			return "", err
		}

		return string(out), nil

	default:
		if resp.IsText() {
			return resp.String() + "\n", nil
		}

		var sb strings.Builder
		sb.WriteString(resp.String())
		sb.WriteByte('\n')
		sb.WriteString(hex.Dump(resp.Bytes()))

		return sb.String(), nil
	}
}
