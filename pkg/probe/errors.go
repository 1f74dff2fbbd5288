package probe

import "errors"

var (
	// ErrThrottled reports that a settings request for the same token was
	// issued too recently. Callers should treat the earlier answer as current.
	ErrThrottled = errors.New("settings request throttled")

	// ErrNoResponse is carried by failed results once the poll budget is
	// spent without a fresh reply.
	ErrNoResponse = errors.New("device did not respond")

	errPublisherRequired = errors.New("publisher is required")
	errTokenRequired     = errors.New("device token is required")
)
