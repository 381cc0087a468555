package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchboard/pkg/logger"
)

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting matchboard simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("upstream", config.UpstreamAddr),
		logger.Int("sessions", config.NumSessions),
		logger.Int("matches", config.NumMatches),
		logger.Int("submitters", config.Submitters),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Fabricate the fixtures
	sessions := generateSessions(ctx, config, stats)
	matches := generateMatches(ctx, config, stats)

	// Step 2: Serve the fake data service the dashboard fetches from
	upstream := newUpstream(config.UpstreamAddr, sessions)
	upstream.Start()
	defer func() {
		if err := upstream.Shutdown(context.Background()); err != nil {
			logger.Get().Warn(context.Background(), "failed to stop fake data service", logger.Error(err))
		}
	}()

	// Step 3: Check dashboard health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	if err := upstream.Err(); err != nil {
		return fmt.Errorf("fake data service failed to start: %w", err)
	}

	// Step 4: Register rosters
	if err := registerRosters(ctx, config, matches); err != nil {
		return fmt.Errorf("roster registration failed: %w", err)
	}

	// Step 5: Submit scores concurrently
	if err := submitScores(ctx, config, matches, stats); err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}

	// Step 6: Wait for the queue to drain
	logger.Get().Info(ctx, "waiting for submissions to be processed")
	time.Sleep(ProcessingDelay)

	// Step 7: Retrieve verdicts concurrently
	verdicts, err := retrieveVerdicts(ctx, config, matches, stats)
	if err != nil {
		return fmt.Errorf("verdict retrieval failed: %w", err)
	}

	// Step 8: Resolve session tokens into aggregate views
	tokens := buildTokens(sessions)
	views, err := retrieveAggregates(ctx, config, tokens, stats)
	if err != nil {
		return fmt.Errorf("aggregate retrieval failed: %w", err)
	}

	// Step 9: Verify results
	if err := verifyResults(ctx, config, matches, verdicts, tokens, views, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	displayTopMatches(ctx, matches, verdicts, config.Verbose)

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the dashboard is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, scoresPerSecond float64

	if stats.ScoresSubmitted > 0 {
		acceptRate = float64(stats.ScoresAccepted) / float64(stats.ScoresSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsFabricated", stats.SessionsFabricated),
		logger.Int("matchesDriven", stats.MatchesDriven),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresAccepted", stats.ScoresAccepted),
		logger.Int("scoresRejected", stats.ScoresRejected),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Int("verdictsRetrieved", stats.VerdictsRetrieved),
		logger.Int("verdictsReached", stats.VerdictsReached),
		logger.Int("aggregatesRetrieved", stats.AggregatesRetrieved),
		logger.Int("aggregatesFailed", stats.AggregatesFailed),
		logger.Int("verificationWarnings", stats.VerificationWarnings),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
