package access

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTypeMismatch     = fmt.Errorf("%w: object types differ", ErrInvalidArgument)
	ErrNotVersionedType = errors.New("type has no version column")
	ErrStoreAccess      = errors.New("store access failed")
	ErrCodec            = errors.New("row codec failed")
)

// Error wraps a sentinel error with the operation, its context and the underlying cause. Both
// the sentinel and the cause are visible to errors.Is and errors.As.
type Error struct {
	err     error  // The sentinel error
	op      string // Operation that failed
	context string // Key range, type or object context
	cause   error  // Underlying error, if any
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.op)
	sb.WriteString(": ")
	sb.WriteString(e.err.Error())
	if e.context != "" {
		sb.WriteString(": ")
		sb.WriteString(e.context)
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.cause}
}

// Op returns the name of the failed operation.
func (e *Error) Op() string {
	return e.op
}

func newError(err error, op string, cause error, format string, args ...any) *Error {
	return &Error{
		err:     err,
		op:      op,
		context: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}
