package domain

import "errors"

// Scan and commit failures the client can recover from by rescanning or
// retrying the submit. Anything else that bubbles out of a commit is a
// remote-write failure wrapping the underlying storage error.
var (
	ErrUnitNotFound      = errors.New("no unit matches the scanned code")
	ErrWrongStudio       = errors.New("unit belongs to a different studio")
	ErrAlreadyStaged     = errors.New("unit already staged in this session")
	ErrNotAvailable      = errors.New("unit is not available for checkout")
	ErrNotCheckedOut     = errors.New("unit is not checked out")
	ErrNothingStaged     = errors.New("no unit staged for commit")
	ErrSessionBusy       = errors.New("a previous scan is still processing")
	ErrSessionNotFound   = errors.New("scan session not found")
	ErrQuantityConflict  = errors.New("available quantity out of sync with unit status")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrStudioNotFound    = errors.New("studio not found")
	ErrNotMember         = errors.New("user is not a member of the studio")
)
