package domain

import "errors"

// Integrity errors from store transitions. Both indicate a broken invariant
// rather than a transient condition and must be surfaced, never swallowed.
var (
	// ErrNotFound means the referenced message id does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrInvalidState means the requested transition is not legal from the
	// message's current lifecycle state.
	ErrInvalidState = errors.New("invalid lifecycle state for transition")
)
