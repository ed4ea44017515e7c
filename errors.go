package crossdb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ErrorKind classifies every failure a Result can carry.
type ErrorKind int

const (
	// SyntaxError: the query failed to compile, or a named parameter could
	// not be mapped onto a positional slot.
	SyntaxError ErrorKind = iota
	// ConnectionError: not connected, or the connect attempt failed.
	ConnectionError
	// ExecutionError: the backend rejected the statement.
	ExecutionError
	// HandleError: operation on a released statement or unknown savepoint.
	HandleError
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case ConnectionError:
		return "ConnectionError"
	case ExecutionError:
		return "ExecutionError"
	case HandleError:
		return "HandleError"
	}
	return "UnknownError"
}

// Error is the failure variant carried by a Result. Cause, when set, holds
// the underlying backend or compiler error.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("crossdb: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

var (
	// ErrInvalidConn is returned by synchronous paths when the connection
	// has been closed or never established.
	ErrInvalidConn = errors.New("crossdb: invalid connection")

	// ErrUnknownBackend is returned by Open for an unregistered backend name.
	ErrUnknownBackend = errors.New("crossdb: unknown backend")
)

// failed-bind message, fixed so callers can match on it.
const errFailedParamMap = "Failed to map parameters."

var (
	loggerMu sync.RWMutex
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// SetLogger replaces the package logger. The default logs warnings and
// errors to stderr.
func SetLogger(l *slog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func errLog() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	return l
}
