package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/matchboard/internal/simulator"
)

// Default configuration constants.
const (
	defaultNumSessions = 200
	defaultNumMatches  = 50
	defaultSubmitters  = 4
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the dashboard service")
		upstreamAddr = flag.String("upstream", "localhost:9010", "Listen address for the fake data service")
		numSessions  = flag.Int("sessions", defaultNumSessions, "Number of game sessions to fabricate")
		numMatches   = flag.Int("matches", defaultNumMatches, "Number of matches to drive through scoring")
		submitters   = flag.Int("submitters", defaultSubmitters, "Score submitters per match")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile      = flag.String("log", "", "Log file for simulation output (default: simulate_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	// Setup logging
	if err := simulator.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulator.Config{
		BaseURL:      *baseURL,
		UpstreamAddr: *upstreamAddr,
		NumSessions:  *numSessions,
		NumMatches:   *numMatches,
		Submitters:   *submitters,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the simulation
	if err := simulator.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
