// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataAPIURL is the base URL of the upstream match data service.
	DataAPIURL string `koanf:"data_api_url"`

	// FetchTimeoutMS bounds each upstream retrieval in milliseconds.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxSessionRefs caps how many session ids one path token may name.
	MaxSessionRefs int `koanf:"max_session_refs"`

	// WorkerCount sets the number of consensus evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory submission event queue.
	QueueSize int `koanf:"queue_size"`

	// DBPath is the SQLite database file for rosters and submissions.
	DBPath string `koanf:"db_path"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		DataAPIURL:     "http://localhost:9010",
		FetchTimeoutMS: 5_000,
		MaxSessionRefs: 8,
		WorkerCount:    runtime.NumCPU() * 2,
		QueueSize:      10_000,
		DBPath:         "matchboard.db",
	}
}
