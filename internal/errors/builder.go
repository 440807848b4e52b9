package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent API for constructing rich errors:
//
//	ierr.NewError("tenant not found").
//		WithHint("No tenant matches the provider customer reference").
//		WithReportableDetails(map[string]any{"customer_id": id}).
//		Mark(ierr.ErrNotFound)
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]any
}

// NewError starts a builder from a fresh error message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a builder from a formatted error message.
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts a builder wrapping an existing error, preserving its
// chain for errors.Is checks.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithHint attaches a user-safe hint rendered in API error responses.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf attaches a formatted user-safe hint.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithMessage wraps the underlying error with an additional message.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.Wrap(b.err, msg)
	return b
}

// WithMessagef wraps the underlying error with a formatted message.
func (b *ErrorBuilder) WithMessagef(format string, args ...any) *ErrorBuilder {
	b.err = errors.Wrapf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to return
// to API consumers and to emit in logs.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalizes the builder, marking the error with one of the category
// sentinels so errors.Is works across wrap boundaries.
func (b *ErrorBuilder) Mark(mark error) error {
	err := b.err
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	if len(b.details) > 0 {
		for k, v := range b.details {
			err = errors.WithDetailf(err, "%s: %v", k, v)
		}
	}
	return errors.Mark(err, mark)
}
