package session

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired
	ErrSessionNotFound = errors.New("session not found")

	// ErrBatchLimitExceeded is returned when an incoming file set would push
	// the batch past the file ceiling. The whole incoming set is rejected.
	ErrBatchLimitExceeded = errors.New("batch limit exceeded")

	// ErrInvalidFile is returned when a candidate file fails the type or
	// size gate
	ErrInvalidFile = errors.New("invalid file")

	// ErrInvalidStage is returned when an operation is not allowed in the
	// wizard's current stage
	ErrInvalidStage = errors.New("operation not allowed in current stage")

	// ErrItemNotFound is returned when an item index is out of range
	ErrItemNotFound = errors.New("item not found")

	// ErrNoItemsSelected is returned by the validator when nothing is selected
	ErrNoItemsSelected = errors.New("no items selected")
)
