package library

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure kinds returned by Engine operations. Match them with errors.Is.
var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateID       = errors.New("item id already exists")
	ErrNotFound          = errors.New("item not found")
	ErrAlreadyIssued     = errors.New("item is already issued")
	ErrNotIssued         = errors.New("item is not issued")
	ErrNoSuchLoan        = errors.New("account has not borrowed that item")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAccountNotFound   = errors.New("account not found")
)

// PersistenceError reports a failed snapshot save under PersistFailFast.
// The in-memory mutation it follows has already been applied.
type PersistenceError struct {
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
