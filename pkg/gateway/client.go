// Package gateway performs single request/response round trips against an MCP
// server speaking newline-delimited JSON-RPC over stdio.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/core"
	"github.com/rexliu/m365/pkg/logging"
	"github.com/rexliu/m365/pkg/mcp"
)

const (
	initializeID = 1
	toolCallID   = 2
)

// Recorder receives one record per completed call.
type Recorder interface {
	Record(ctx context.Context, rec core.CallRecord) error
}

// Client sends tools/call requests through a Runner.
type Client struct {
	runner          Runner
	timeout         time.Duration
	info            mcp.ClientInfo
	protocolVersion string
	logger          logging.Logger
	recorder        Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClientInfo sets the clientInfo sent during initialize.
func WithClientInfo(name, version string) Option {
	return func(c *Client) { c.info = mcp.ClientInfo{Name: name, Version: version} }
}

// WithProtocolVersion sets the protocolVersion sent during initialize.
func WithProtocolVersion(v string) Option {
	return func(c *Client) { c.protocolVersion = v }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder installs a history recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient constructs a Client with the stock handshake and a 60s timeout.
func NewClient(runner Runner, opts ...Option) *Client {
	c := &Client{
		runner:          runner,
		timeout:         time.Duration(config.DefaultTimeoutSeconds) * time.Second,
		info:            mcp.ClientInfo{Name: config.DefaultClientName, Version: config.DefaultClientVersion},
		protocolVersion: config.DefaultProtocolVersion,
		logger:          logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one round trip and never fails: errors come back as
// {"error": ...} mappings in place of the result.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) any {
	result, err := c.Do(ctx, method, params)
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			return gerr.Mapping()
		}
		return map[string]any{"error": err.Error()}
	}
	return result
}

// Do performs one round trip. Failures are *Error values.
func (c *Client) Do(ctx context.Context, method string, params map[string]any) (any, error) {
	req := core.Request{Method: method, Params: params}
	id := core.NewRequestID()
	log := c.logger.WithFields(map[string]any{"requestId": id, "method": method})
	start := time.Now()

	log.Debug("calling tool")
	result, err := c.roundTrip(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).WithFields(map[string]any{"kind": KindOf(err).String(), "elapsed": elapsed}).Info("tool call failed")
	} else {
		log.WithField("elapsed", elapsed).Debug("tool call completed")
	}
	c.record(ctx, log, id, req, start, elapsed, err)
	return result, err
}

// Encode renders the handshake and tool-invocation messages for req.
func (c *Client) Encode(req core.Request) ([]byte, error) {
	args := req.Params
	if args == nil {
		args = map[string]any{}
	}
	return mcp.EncodeMessages(
		mcp.Request{
			JSONRPC: mcp.Version,
			ID:      initializeID,
			Method:  mcp.MethodInitialize,
			Params: mcp.InitializeParams{
				ProtocolVersion: c.protocolVersion,
				Capabilities:    map[string]any{},
				ClientInfo:      c.info,
			},
		},
		mcp.Request{
			JSONRPC: mcp.Version,
			ID:      toolCallID,
			Method:  mcp.MethodToolsCall,
			Params:  mcp.CallToolParams{Name: req.Method, Arguments: args},
		},
	)
}

func (c *Client) roundTrip(ctx context.Context, req core.Request) (any, error) {
	input, err := c.Encode(req)
	if err != nil {
		return nil, &Error{Kind: KindSpawn, Msg: "encode request: " + err.Error(), Err: err}
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Run(runCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Msg: msgTimeout, Err: err}
		}
		return nil, &Error{Kind: KindSpawn, Msg: err.Error(), Err: err}
	}
	return ParseReply(out)
}

func (c *Client) record(ctx context.Context, log logging.Logger, id string, req core.Request, start time.Time, elapsed time.Duration, callErr error) {
	if c.recorder == nil {
		return
	}
	rec := core.CallRecord{
		ID:         id,
		Method:     req.Method,
		Outcome:    core.OutcomeOK,
		StartedAt:  start.UnixMilli(),
		DurationMS: elapsed.Milliseconds(),
	}
	if req.Params != nil {
		if raw, err := json.Marshal(req.Params); err == nil {
			rec.Params = raw
		}
	}
	if callErr != nil {
		rec.Outcome = outcomeOf(KindOf(callErr))
		rec.Error = callErr.Error()
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.WithError(err).Warn("history record failed")
	}
}

func outcomeOf(k Kind) core.Outcome {
	switch k {
	case KindTimeout:
		return core.OutcomeTimeout
	case KindMalformed:
		return core.OutcomeMalformed
	case KindRemote:
		return core.OutcomeRemote
	default:
		return core.OutcomeSpawn
	}
}
