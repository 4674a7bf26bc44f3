package models

import "errors"

var (
	// ErrInvalidArgument marks caller mistakes. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamUnavailable marks a failed or timed out external call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotFound is returned when a listing or party is missing, or a
	// listing is not owned by the seller acting on it.
	ErrNotFound = errors.New("not found")
)
