package codec

import (
	"errors"
	"fmt"
)

var (
	ErrCodec          = errors.New("codec error")
	ErrInvalidMapping = errors.New("invalid type mapping")
	ErrNotVersioned   = errors.New("type has no version column")
	ErrUnknownType    = errors.New("type is not registered")
	ErrRegistrySealed = errors.New("type registry is sealed")
	ErrRegistryOpen   = errors.New("type registry is not sealed")
)

// Error wraps a sentinel error with additional context
type Error struct {
	err     error
	context string
}

func (e *Error) Error() string {
	if e.context == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.context)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, format string, args ...any) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}
