package stream

import "errors"

var (
	// ErrStreamingUnsupported is returned to clients when the response writer cannot flush.
	ErrStreamingUnsupported = errors.New("streaming unsupported")

	// ErrMethodNotAllowed is returned to clients for non-GET requests.
	ErrMethodNotAllowed = errors.New("method not allowed")
)
