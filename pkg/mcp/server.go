package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rexliu/m365/pkg/logging"
)

// ToolFunc handles one tools/call. A string result is returned as-is in the text
// content; anything else is JSON-encoded first.
type ToolFunc func(ctx context.Context, args map[string]any) (any, *Error)

// Server answers newline-delimited JSON-RPC over a reader/writer pair, the way an
// MCP server does over stdio.
type Server struct {
	name    string
	version string
	mu      sync.RWMutex
	tools   map[string]registeredTool
	logger  logging.Logger
}

type registeredTool struct {
	desc Tool
	fn   ToolFunc
}

// NewServer constructs a tool server that reports name/version during initialize.
func NewServer(name, version string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]registeredTool),
		logger:  logger,
	}
}

// Register installs a handler for a tool.
func (s *Server) Register(name, description string, fn ToolFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[name] = registeredTool{
		desc: Tool{Name: name, Description: description, InputSchema: map[string]any{"type": "object"}},
		fn:   fn,
	}
}

// Serve processes messages from r until EOF or ctx is done. Replies are written to w
// in request order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := ReadMessage(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if werr := s.writeError(w, nil, Errorf(CodeParseError, "invalid json")); werr != nil {
				return werr
			}
			continue
		}
		if req.ID == nil {
			s.logger.Debugf("notification %s ignored", req.Method)
			continue
		}
		result, rpcErr := s.dispatch(ctx, req)
		if rpcErr != nil {
			if err := s.writeError(w, req.ID, rpcErr); err != nil {
				return err
			}
			continue
		}
		if err := s.writeResult(w, req.ID, result); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, *Error) {
	switch req.Method {
	case MethodInitialize:
		var params InitializeParams
		if err := remarshal(req.Params, &params); err != nil {
			return nil, Errorf(CodeInvalidParams, "invalid initialize params")
		}
		s.logger.WithField("client", params.ClientInfo.Name).Debug("initialize")
		return InitializeResult{
			ProtocolVersion: params.ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      ClientInfo{Name: s.name, Version: s.version},
		}, nil
	case MethodToolsList:
		return map[string]any{"tools": s.listTools()}, nil
	case MethodToolsCall:
		var params CallToolParams
		if err := remarshal(req.Params, &params); err != nil || params.Name == "" {
			return nil, Errorf(CodeInvalidParams, "invalid tools/call params")
		}
		return s.callTool(ctx, params)
	default:
		return nil, Errorf(CodeMethodNotFound, "method not found: %s", req.Method)
	}
}

func (s *Server) callTool(ctx context.Context, params CallToolParams) (any, *Error) {
	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		res := TextResult(fmt.Sprintf("unknown tool: %s", params.Name))
		res.IsError = true
		return res, nil
	}
	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}
	out, rpcErr := tool.fn(ctx, args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if text, ok := out.(string); ok {
		return TextResult(text), nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, Errorf(CodeInternalError, "%v", err)
	}
	return TextResult(string(raw)), nil
}

func (s *Server) listTools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t.desc)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

func (s *Server) writeResult(w io.Writer, id any, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return s.writeError(w, id, Errorf(CodeInternalError, "%v", err))
	}
	return WriteMessage(w, Response{JSONRPC: Version, ID: id, Result: raw})
}

func (s *Server) writeError(w io.Writer, id any, rpcErr *Error) error {
	raw, err := json.Marshal(rpcErr)
	if err != nil {
		return err
	}
	return WriteMessage(w, Response{JSONRPC: Version, ID: id, Error: raw})
}

// remarshal converts a decoded params value into a typed struct.
func remarshal(in any, out any) error {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
