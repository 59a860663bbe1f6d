package port

import "errors"

var (
	// ErrNotFound is returned by adapters when the addressed record does not exist
	ErrNotFound = errors.New("not found")

	// ErrMessageClosed is returned when writing to a closed conversation
	ErrMessageClosed = errors.New("conversation closed")
)
