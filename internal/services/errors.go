package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/notification-engine/internal/repositories"
)

var (
	// ErrNotFound is returned by ownership-checked operations when the id does not
	// exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput rejects malformed requests before anything is written.
	ErrInvalidInput = errors.New("invalid input")
)

// PersistenceError wraps a store failure. It is the only error Send returns.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError maps repository errors onto the service taxonomy
func storeError(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}
