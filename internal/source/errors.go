package source

import (
	"errors"
	"fmt"
)

var (
	// ErrTerminal marks failures that retrying cannot fix, such as bad
	// credentials or a missing endpoint.
	ErrTerminal        = errors.New("source: terminal error")
	ErrUnknownProvider = errors.New("source: unknown provider")
)

type terminalError struct {
	err error
}

func (e terminalError) Error() string { return e.err.Error() }

func (e terminalError) Unwrap() []error { return []error{e.err, ErrTerminal} }

// Terminal wraps err so IsTerminal reports true for it.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return terminalError{err: err}
}

// Terminalf formats a terminal error.
func Terminalf(format string, args ...any) error {
	return Terminal(fmt.Errorf(format, args...))
}

// IsTerminal reports whether err, or anything it wraps, is terminal.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}
