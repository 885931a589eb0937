package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// WriteMessage writes v to w as one compact JSON line.
func WriteMessage(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// EncodeMessages renders messages as newline-terminated JSON lines.
func EncodeMessages(msgs ...any) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := WriteMessage(&buf, m); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ReadMessage reads the next non-blank line from r. A final line without a
// trailing newline is returned before io.EOF.
func ReadMessage(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// SplitLines trims surrounding whitespace from a captured output stream and
// splits it on newlines. Empty output yields a single empty line.
func SplitLines(out []byte) []string {
	return strings.Split(strings.TrimSpace(string(out)), "\n")
}
