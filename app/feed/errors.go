package feed

import (
	"errors"
	"fmt"
)

// Not-found values double as the authorization boundary: addressing another
// user's widget, source or item reports the same not-found the caller would
// see for a missing row.
var (
	ErrWidgetNotFound    = errors.New("widget not found")
	ErrSourceNotFound    = errors.New("feed source not found")
	ErrBindingNotFound   = errors.New("feed subscription not found")
	ErrItemNotFound      = errors.New("feed item not found")
	ErrAlreadySubscribed = errors.New("feed source is already subscribed")
)

// ValidationError carries field-level detail for a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// RefreshError is the advisory failure of a single refresh attempt. Its
// reason has already been recorded on the source as last_fetch_error; it is
// returned so synchronous callers can surface it, and is never worth a retry
// loop on its own.
type RefreshError struct {
	Reason string
}

func (e *RefreshError) Error() string {
	return e.Reason
}
