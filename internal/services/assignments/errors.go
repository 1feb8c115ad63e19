package assignments

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInputIncomplete     = errors.New("collection input incomplete")
	ErrNoSignups           = fmt.Errorf("collection has no signups: %w", ErrInputIncomplete)
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrCollectionBusy      = errors.New("collection is locked by another run")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrSignupNotFound      = errors.New("participant has no signup in collection")
	ErrLockLost            = errors.New("collection lock lost during run")
)

// PersistenceError reports a store write rejected mid-run. The surrounding
// transaction is rolled back, so the collection is left as it was before the
// run started.
type PersistenceError struct {
	Op           string
	CollectionID int64
	SignupID     int64
	AssignmentID int64
	Err          error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("persist %s in collection %d", e.Op, e.CollectionID)
	if e.SignupID > 0 {
		msg += fmt.Sprintf(" (signup %d)", e.SignupID)
	}
	if e.AssignmentID > 0 {
		msg += fmt.Sprintf(" (assignment %d)", e.AssignmentID)
	}
	return msg + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistenceFailure(err error) (*PersistenceError, bool) {
	var target *PersistenceError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
