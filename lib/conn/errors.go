package conn

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"strings"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies an Error
type Kind int

const (
	KindOpenFailed Kind = iota + 1
	KindReadOnlyViolation
	KindTransactionAlreadyActive
	KindNoActiveTransaction
	KindNotFound
	KindBusy
	KindCorrupt
	KindEngineFailure
)

// Sentinel errors, one per kind. Every *Error matches the sentinel of its kind with errors.Is.
var (
	ErrOpenFailed    = errors.New("open failed")
	ErrReadOnly      = errors.New("read-only violation")
	ErrTxActive      = errors.New("transaction already active")
	ErrNoTx          = errors.New("no active transaction")
	ErrNotFound      = errors.New("not found")
	ErrBusy          = errors.New("busy")
	ErrCorrupt       = errors.New("corrupt")
	ErrEngineFailure = errors.New("engine failure")

	// ErrClosed is the cause of every error returned by a closed connection
	ErrClosed = errors.New("connection closed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindOpenFailed:
		return ErrOpenFailed
	case KindReadOnlyViolation:
		return ErrReadOnly
	case KindTransactionAlreadyActive:
		return ErrTxActive
	case KindNoActiveTransaction:
		return ErrNoTx
	case KindNotFound:
		return ErrNotFound
	case KindBusy:
		return ErrBusy
	case KindCorrupt:
		return ErrCorrupt
	default:
		return ErrEngineFailure
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// kindOf translates a failed native status outside of open
func kindOf(status db.Status) Kind {
	switch status {
	case db.StatusBusy, db.StatusLocked:
		return KindBusy
	case db.StatusCorrupt:
		return KindCorrupt
	case db.StatusNotFound:
		return KindNotFound
	case db.StatusReadOnly:
		return KindReadOnlyViolation
	default:
		return KindEngineFailure
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error is the error type of all connection operations
type Error struct {
	Kind Kind
	Op   string    // operation that failed, e.g. "commit"
	Code db.Status // native status, db.StatusOK if the error was raised locally
	Msg  string    // detail message, from the engine if it provided one
	Err  error     // optional cause
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("ekv: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Code != db.StatusOK {
		sb.WriteString(" [")
		sb.WriteString(e.Code.String())
		sb.WriteString("]")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the sentinel of the error kind and the cause, if any
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// Retryable reports whether repeating the operation may succeed. Only contention is retryable.
func (e *Error) Retryable() bool {
	return e.Kind == KindBusy
}

// IsRetryable reports whether err is a retryable *Error
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// KindOf returns the kind of err if it is an *Error
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

func newError(kind Kind, op string, format string, args ...any) *Error {
	errorsTotal(kind).Inc()
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// engineError translates a failed native status. The detail message is only
// fetched from the engine here.
func (c *Connection) engineError(op string, status db.Status) *Error {
	return c.engineErrorAs(kindOf(status), op, status)
}

func (c *Connection) engineErrorAs(kind Kind, op string, status db.Status) *Error {
	msg, _ := c.handle.LastError()
	errorsTotal(kind).Inc()
	return &Error{Kind: kind, Op: op, Code: status, Msg: msg}
}

func closedError(op string) *Error {
	errorsTotal(KindEngineFailure).Inc()
	return &Error{Kind: KindEngineFailure, Op: op, Err: ErrClosed}
}
