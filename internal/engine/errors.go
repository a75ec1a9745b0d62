package engine

import (
	"errors"
	"fmt"

	"caseflow/internal/repo"
)

// NotFoundError indicates a case, stage or task that does not exist for the owner.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationError indicates malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ProtectedStageError indicates an attempt to delete a default stage.
type ProtectedStageError struct {
	StageID string
	Name    string
}

func (e ProtectedStageError) Error() string {
	return fmt.Sprintf("stage %q is a default stage and cannot be deleted", e.Name)
}

// PersistenceError wraps a storage failure. The operation was not applied and
// may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }

// Retryable is always true for storage failures.
func (e PersistenceError) Retryable() bool { return true }

func isTyped(err error) bool {
	var nf NotFoundError
	var ve ValidationError
	var pe ProtectedStageError
	var ps PersistenceError
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &ps)
}

// classify returns typed errors unchanged and wraps everything else,
// cancellation included, as a PersistenceError.
func classify(op string, err error) error {
	if err == nil || isTyped(err) {
		return err
	}
	return PersistenceError{Op: op, Err: err}
}

// notFound maps repo.ErrNotFound to a NotFoundError for kind/id.
func notFound(err error, kind, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFoundError{Kind: kind, ID: id}
	}
	return err
}
