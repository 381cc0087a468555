package config

import (
	"errors"
)

// Sentinel error kinds for configuration loading. Callers distinguish a
// file/env read failure from a semantically invalid value via errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
