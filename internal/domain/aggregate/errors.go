package aggregate

import "errors"

// Sentinel kinds for aggregation errors.
var (
	// ErrNoUsableSession means no fetched bundle carried a session record.
	// Distinct from an empty-but-valid aggregate.
	ErrNoUsableSession = errors.New("no usable session")
)
