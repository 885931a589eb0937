package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rexliu/m365/pkg/logging"
)

// Runner executes one request against the MCP server: it receives the complete
// stdin stream and returns everything the server wrote to stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, stdin []byte) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, stdin []byte) ([]byte, error) {
	return f(ctx, stdin)
}

// DefaultWaitDelay bounds how long a killed server may keep its stdio pipes open.
const DefaultWaitDelay = 2 * time.Second

// ProcessRunner spawns the MCP server as a child process for every request.
type ProcessRunner struct {
	Command string
	Args    []string
	// Env is appended to the parent environment.
	Env       []string
	WaitDelay time.Duration
	Logger    logging.Logger

	// Terminal streams used by Launch; nil means the process's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessRunner returns a runner for command args... with extra environment.
func NewProcessRunner(command string, args, env []string, logger logging.Logger) *ProcessRunner {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &ProcessRunner{
		Command:   command,
		Args:      args,
		Env:       env,
		WaitDelay: DefaultWaitDelay,
		Logger:    logger,
	}
}

// Run feeds stdin to a fresh server process and captures its stdout. The process
// is killed when ctx is done; its exit status is otherwise ignored, since the reply
// is judged on output alone.
func (p *ProcessRunner) Run(ctx context.Context, stdin []byte) ([]byte, error) {
	cmd := p.command(ctx, p.Args)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		p.logger().WithField("stderr", strings.TrimSpace(stderr.String())).Debug("server stderr")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.Bytes(), ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.logger().WithField("exitCode", exitErr.ExitCode()).Info("server exited with non-zero status")
		return stdout.Bytes(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", p.Command, err)
	}
	return stdout.Bytes(), nil
}

// Launch runs the server with extra arguments attached to the terminal and waits
// for it. A non-zero exit is logged, not returned.
func (p *ProcessRunner) Launch(ctx context.Context, extra ...string) error {
	args := append(append([]string{}, p.Args...), extra...)
	cmd := p.command(ctx, args)
	cmd.Stdin = orReader(p.Stdin, os.Stdin)
	cmd.Stdout = orWriter(p.Stdout, os.Stdout)
	cmd.Stderr = orWriter(p.Stderr, os.Stderr)

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.logger().WithField("exitCode", exitErr.ExitCode()).Info("interactive server exited with non-zero status")
		return nil
	}
	if err != nil {
		return fmt.Errorf("launch %s: %w", p.Command, err)
	}
	return nil
}

func (p *ProcessRunner) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.Command, args...)
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	cmd.WaitDelay = p.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	return cmd
}

func (p *ProcessRunner) logger() logging.Logger {
	if p.Logger == nil {
		return logging.NopLogger{}
	}
	return p.Logger
}

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
