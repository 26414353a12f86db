package service

import "errors"

var (
	// ErrCapacityExceeded is a business rejection: admitting the request
	// would over-commit the product's stock somewhere in the window. Never
	// retried by the engine.
	ErrCapacityExceeded = errors.New("requested quantity exceeds available capacity")

	// ErrRepositoryUnavailable covers transient storage failures, including
	// a counter write still conflicting after the retry budget. The caller
	// may retry the whole operation.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	ErrInvalidWindow   = errors.New("reservation window start is after end")
	ErrInvalidQuantity = errors.New("reservation quantity must be positive")
	ErrMissingOrderID  = errors.New("order id required for this intent")
)
