package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind int

const (
	// KindTimeout means the server did not finish within the call timeout.
	KindTimeout Kind = iota + 1
	// KindSpawn covers process start and stdio failures.
	KindSpawn
	// KindMalformed means the captured output did not hold a usable reply.
	KindMalformed
	// KindRemote means the server answered with a JSON-RPC error.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindSpawn:
		return "spawn"
	case KindMalformed:
		return "malformed"
	case KindRemote:
		return "remote"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	msgTimeout    = "Request timed out"
	msgUnexpected = "Unexpected response"
)

// Error is returned by Client.Do.
type Error struct {
	Kind Kind
	// Msg is the user-facing description.
	Msg string
	// Raw holds the captured output when the reply could not be located.
	Raw *string
	// Payload is the server's error member for KindRemote.
	Payload any
	Err     error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

// Mapping renders the error the way Call reports it to callers.
func (e *Error) Mapping() map[string]any {
	switch {
	case e.Kind == KindRemote:
		return map[string]any{"error": e.Payload}
	case e.Raw != nil:
		return map[string]any{"error": e.Msg, "raw": *e.Raw}
	default:
		return map[string]any{"error": e.Msg}
	}
}

// KindOf reports the Kind of err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return 0
}

func unexpected(raw []byte) *Error {
	s := string(raw)
	return &Error{Kind: KindMalformed, Msg: msgUnexpected, Raw: &s}
}
