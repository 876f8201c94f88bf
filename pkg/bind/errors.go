package bind

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes wrapped by ProgrammerError.
var (
	ErrLocked             = errors.New("model is locked")
	ErrAlreadyRegistered  = errors.New("index already registered")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrIncompleteSchema   = errors.New("schema has unregistered indices")
	ErrAlreadyBound       = errors.New("observable already materialized")
	ErrAlreadyInitialized = errors.New("list already initialized")
	ErrLengthMismatch     = errors.New("names and values differ in length")
	ErrReadOnly           = errors.New("property is read-only")
	ErrUnknownType        = errors.New("no type registered")
)

// ProgrammerError reports a broken usage contract: double locking,
// double registration, reads while locked, re-initialization after binding.
// It is never retried or recovered by this package.
type ProgrammerError struct {
	Op  string
	Err error
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProgrammerError) Unwrap() error {
	return e.Err
}

func programmerError(op string, err error) error {
	return &ProgrammerError{Op: op, Err: err}
}

// TransportError is a network or decoding failure of a channel. It only
// ever reaches the model as the payload of an ERROR message.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// asTransportError wraps err unless it already is a TransportError.
func asTransportError(op, url string, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: op, URL: url, Err: err}
}

// LookupError is returned when no rendering/transport pair could be
// resolved while building a Context.
type LookupError struct {
	Technology string
	Transport  string

	AvailableTechnologies []string
	AvailableTransports   []string

	// Causes holds factory failures seen while probing candidates.
	Causes []error
}

func (e *LookupError) Error() string {
	var b strings.Builder
	b.WriteString("no backend pair found")
	if e.Technology != "" || e.Transport != "" {
		fmt.Fprintf(&b, " for technology %q and transport %q", e.Technology, e.Transport)
	}
	fmt.Fprintf(&b, "\nAvailable technologies: %v\nAvailable transports: %v", e.AvailableTechnologies, e.AvailableTransports)
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, "\nCause: %v", errors.Join(e.Causes...))
	}
	return b.String()
}

func (e *LookupError) Unwrap() []error {
	return e.Causes
}
