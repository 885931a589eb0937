package mcp

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessages(t *testing.T) {
	out, err := EncodeMessages(
		Request{JSONRPC: Version, ID: 1, Method: MethodInitialize, Params: InitializeParams{
			ProtocolVersion: "2024-11-05",
			Capabilities:    map[string]any{},
			ClientInfo:      ClientInfo{Name: "ms365_cli", Version: "1.0"},
		}},
		Request{JSONRPC: Version, ID: 2, Method: MethodToolsCall, Params: CallToolParams{
			Name:      "list-mail-messages",
			Arguments: map[string]any{"top": 5},
		}},
	)
	require.NoError(t, err)

	want := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"ms365_cli","version":"1.0"}}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list-mail-messages","arguments":{"top":5}}}` + "\n"
	assert.Equal(t, want, string(out))
}

func TestWriteMessageKeepsHTML(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteMessage(&sb, map[string]string{"q": "<a&b>"}))
	assert.Equal(t, `{"q":"<a&b>"}`+"\n", sb.String())
}

func TestReadMessage(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\n  {\"a\":1}\r\n\n{\"b\":2}"))

	line, err := ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))

	line, err = ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(line))

	_, err = ReadMessage(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{""}, SplitLines(nil))
	assert.Equal(t, []string{"one"}, SplitLines([]byte("one\n")))
	assert.Equal(t, []string{"one", "two"}, SplitLines([]byte("\n one\ntwo\n\n")))
}

func TestErrorString(t *testing.T) {
	err := Errorf(CodeMethodNotFound, "method not found: %s", "x")
	assert.Equal(t, "rpc error: code=-32601 message=method not found: x", err.Error())
}
