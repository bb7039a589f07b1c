package raft

import "github.com/pkg/errors"

// FatalError marks an invariant violation that indicates a bug or
// corrupted storage: truncating committed log entries, or a
// persistent-state regression. The embedder must halt the node rather
// than continue running; the core does not attempt to recover from it.
type FatalError struct {
	cause error
}

func newFatalError(msg string) *FatalError {
	return &FatalError{cause: errors.New(msg)}
}

func (e *FatalError) Error() string {
	return "raft: fatal invariant violation: " + e.cause.Error()
}

func (e *FatalError) Unwrap() error {
	return e.cause
}
