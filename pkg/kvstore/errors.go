package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned by Connect for a mode other than "single"
	// or "cluster".
	ErrInvalidMode = errors.New("kvstore: invalid mode")

	// ErrNotFound means the key does not exist.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrUnavailable means the store could not be reached or did not answer
	// in time. Callers treat the value as absent.
	ErrUnavailable = errors.New("kvstore: unavailable")
)

// OpError describes a failed store operation. It matches its Kind with
// errors.Is and also unwraps to the underlying client error.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s %q", e.Kind, e.Op, e.Key)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Kind, e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
