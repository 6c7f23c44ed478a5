package store

import (
	"errors"
	"fmt"
)

// ErrListenerPanic is matched by every ListenerPanicError.
var ErrListenerPanic = errors.New("store: listener panic")

// ListenerPanicError wraps a panic recovered from a listener during delivery.
type ListenerPanicError struct {
	ListenerID uint64
	Kind       EventKind
	Panic      any
	Stack      []byte
}

// Error returns the error message.
func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("store: listener %d panicked on %s event: %v", e.ListenerID, e.Kind, e.Panic)
}

// Unwrap returns ErrListenerPanic for errors.Is support.
func (e *ListenerPanicError) Unwrap() error {
	return ErrListenerPanic
}

// NewListenerPanicError creates a new ListenerPanicError.
func NewListenerPanicError(listenerID uint64, kind EventKind, panicVal any, stack []byte) *ListenerPanicError {
	return &ListenerPanicError{
		ListenerID: listenerID,
		Kind:       kind,
		Panic:      panicVal,
		Stack:      stack,
	}
}
