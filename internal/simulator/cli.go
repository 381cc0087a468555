package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/matchboard/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulate_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Matchboard Simulation Tool
==========================

A concurrent tool for driving a running matchboard instance end to end:
it fabricates a fake upstream data service, registers rosters, floods the
scoring endpoints and verifies the consensus verdicts and aggregate views
that come back.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of the dashboard service (default "http://localhost:9080")
  -upstream string
        Listen address for the fake data service (default "localhost:9010")
  -sessions int
        Number of game sessions to fabricate (default 200)
  -matches int
        Number of matches to drive through scoring (default 50)
  -submitters int
        Score submitters per match (default 4)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for simulation output (default: simulate_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/simulate/main.go

  # Heavier scoring load
  go run cmd/simulate/main.go -matches 500 -submitters 8 -workers 16

  # Point at a remote instance, keep the fake upstream local
  go run cmd/simulate/main.go -url http://dashboard:9080 -upstream 0.0.0.0:9010

  # Verbose output with a custom log file
  go run cmd/simulate/main.go -verbose -log my_run.log
`)
}
