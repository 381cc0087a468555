package simulator

import "time"

// HTTP status code constants.
const (
	StatusOK        = 200
	StatusAccepted  = 202
	StatusNoContent = 204
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProcessingDelay      = 2 * time.Second
	PercentageMultiplier = 100
)
