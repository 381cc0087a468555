package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEmptyMatchID = errors.New("empty match id")
)
