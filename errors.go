package trpx

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Error is the interface implemented by every error the codec returns. The
// codec never retries and never logs; failures surface to the caller as one
// of the root sentinels below, optionally refined with context.
type Error interface {
	error
	WithMessage(message string) Error
	Wrap(err error) Error
}

type baseError string

const rootError = baseError("")

// ErrCorruptPayload indicates that the payload ended in the middle of a
// field, that a block header declared a width above 64 bits, or that
// memory_size is shorter than the bits the decoder consumed.
var ErrCorruptPayload = rootError.WithMessage("Truncated or corrupt payload")

// ErrMalformedDescriptor indicates that no <Terse/> element was found or
// that a mandatory attribute is missing or not an integer.
var ErrMalformedDescriptor = rootError.WithMessage("Malformed container descriptor")

// ErrParameterMismatch indicates that the caller's element type, frame
// shape or frame index is incompatible with the container parameters.
var ErrParameterMismatch = rootError.WithMessage("Codec parameter mismatch")

// ErrIOFailed wraps errors bubbled up from the underlying byte source or
// sink.
var ErrIOFailed = rootError.WithMessage("Input/output error")

func (e baseError) Error() string {
	return string(e)
}

func (e baseError) WithMessage(message string) Error {
	return customError{
		message:       message,
		originalError: e,
	}
}

func (e baseError) Wrap(err error) Error {
	return customError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customError) Error() string {
	return e.message
}

func (e customError) WithMessage(message string) Error {
	return customError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customError) Wrap(err error) Error {
	return customError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customError) Unwrap() error {
	return e.originalError
}
