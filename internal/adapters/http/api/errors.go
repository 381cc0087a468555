package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrNoSession    = errors.New("token names no session")
	ErrBackpressure = errors.New("backpressure")
)
