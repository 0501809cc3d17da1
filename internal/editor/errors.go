package editor

import (
	"errors"
	"fmt"
)

// Editor rejections. None of these leave state modified.
var (
	ErrMissingExit          = errors.New("layout has no exit")
	ErrMultipleExits        = errors.New("layout has more than one exit")
	ErrNotAssignable        = errors.New("only furniture can receive restocking assignments")
	ErrEmptyCell            = errors.New("cell is empty")
	ErrWrongMode            = errors.New("action not available in current mode")
	ErrNoDraggedObject      = errors.New("no object selected for placement")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrUnsavedChanges       = errors.New("layout has unsaved changes")
	ErrSaveInProgress       = errors.New("a save is already in progress")
	ErrUnknownObject        = errors.New("object type not in palette")
)

// CollaboratorError wraps a failure of the persistence backend.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
