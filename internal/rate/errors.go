package rate

import "errors"

var (
	// ErrUnknownClass reports a traffic class with no configured rule.
	ErrUnknownClass = errors.New("unknown traffic class")
	// ErrStoreUnavailable reports a counter store that failed to answer.
	ErrStoreUnavailable = errors.New("rate counter store unavailable")
)
