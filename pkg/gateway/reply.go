package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rexliu/m365/pkg/mcp"
)

// ParseReply extracts the tool result from a server's captured stdout. The first
// line answers initialize and is skipped; the second answers tools/call.
//
// A result's first content item is re-parsed as JSON when possible and otherwise
// returned as {"text": ...}.
func ParseReply(out []byte) (any, error) {
	lines := mcp.SplitLines(out)
	if len(lines) < 2 {
		return nil, unexpected(out)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(lines[1]), &envelope); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, unexpected(out)
		}
		return nil, &Error{Kind: KindMalformed, Msg: err.Error(), Err: err}
	}
	if raw, ok := envelope["result"]; ok {
		return extractResult(raw, out)
	}
	if raw, ok := envelope["error"]; ok {
		var payload any
		if err := decodeExact(string(raw), &payload); err != nil {
			return nil, &Error{Kind: KindMalformed, Msg: err.Error(), Err: err}
		}
		return nil, &Error{Kind: KindRemote, Msg: remoteMessage(payload), Payload: payload}
	}
	return nil, unexpected(out)
}

func extractResult(raw json.RawMessage, out []byte) (any, error) {
	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil || result == nil {
		return nil, malformed("result is not an object", err)
	}
	var content []map[string]json.RawMessage
	if c, ok := result["content"]; ok {
		if err := json.Unmarshal(c, &content); err != nil {
			return nil, malformed("result content is not a list", err)
		}
	}
	if len(content) == 0 {
		return nil, unexpected(out)
	}
	var text string
	if t, ok := content[0]["text"]; ok {
		if err := json.Unmarshal(t, &text); err != nil {
			return nil, malformed("content text is not a string", err)
		}
	}
	return decodeText(text), nil
}

// decodeText returns text parsed as a single JSON value, or {"text": text}.
func decodeText(text string) any {
	var v any
	if err := decodeExact(text, &v); err != nil {
		return map[string]any{"text": text}
	}
	return v
}

// decodeExact decodes exactly one JSON value, keeping numbers as json.Number.
func decodeExact(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func remoteMessage(payload any) string {
	if m, ok := payload.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "remote error"
	}
	return string(raw)
}

func malformed(msg string, err error) *Error {
	if err == nil {
		err = errors.New(msg)
	}
	return &Error{Kind: KindMalformed, Msg: msg, Err: err}
}
