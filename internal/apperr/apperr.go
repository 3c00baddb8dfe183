// Package apperr classifies failures so the command line can decide how to
// report them and which ones are recoverable.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindArgument is a bad or missing command line or configuration value.
	KindArgument
	// KindIO is an unreadable input or unwritable output file.
	KindIO
	// KindDevice is a live playback failure. It is recovered locally.
	KindDevice
	// KindSynthesis is an engine that could not be created or produced no audio.
	KindSynthesis
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindIO:
		return "io"
	case KindDevice:
		return "device"
	case KindSynthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Argument(op string, err error) error  { return newError(KindArgument, op, err) }
func IO(op string, err error) error        { return newError(KindIO, op, err) }
func Device(op string, err error) error    { return newError(KindDevice, op, err) }
func Synthesis(op string, err error) error { return newError(KindSynthesis, op, err) }

// Argumentf builds an argument error from a format string.
func Argumentf(format string, args ...any) error {
	return &Error{Kind: KindArgument, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
