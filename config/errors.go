package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// Error is a configuration problem found while loading or validating a Config. Path names the
// offending field, for example "offsets.intrinsic[1]".
type Error struct {
	Path string
	Err  error
}

// NewError returns an *Error for the field at path.
func NewError(path string, err error) *Error {
	return &Error{Path: path, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error validating %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying problem.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errors splits a combined load or validation error into its individual *Error values. Errors
// that are not configuration errors are skipped.
func Errors(err error) []*Error {
	var out []*Error
	for _, e := range multierr.Errors(err) {
		if cfgErr, ok := e.(*Error); ok {
			out = append(out, cfgErr)
		}
	}
	return out
}
