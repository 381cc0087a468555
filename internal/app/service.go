// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/matchboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/matchboard/internal/adapters/mq/worker"
	repository "github.com/okian/matchboard/internal/adapters/repository"
	"github.com/okian/matchboard/internal/adapters/statsapi"
	"github.com/okian/matchboard/internal/domain/aggregate"
	"github.com/okian/matchboard/internal/domain/consensus"
	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/internal/domain/resolver"
	"github.com/okian/matchboard/internal/domain/types"
	"github.com/okian/matchboard/pkg/logger"
	"github.com/okian/matchboard/pkg/metrics"
)

// Service implements the API dependencies for the match dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	resolver   *resolver.Resolver
	stats      *statsapi.Client
	store      repository.Store
	engine     *consensus.Engine
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	notifier   workerpool.Notifier

	// Configuration
	dataAPIURL     string
	fetchTimeout   time.Duration
	maxSessionRefs int
	workerCount    int
	queueSize      int
	dbPath         string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataAPIURL sets the base URL of the upstream match data service.
func WithDataAPIURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.dataAPIURL = url
		}
	}
}

// WithFetchTimeout bounds each upstream retrieval.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMaxSessionRefs caps how many session ids one token may reference.
func WithMaxSessionRefs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessionRefs = n
		}
	}
}

// WithWorkerCount sets the number of consensus worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDBPath sets the SQLite database file path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore injects a pre-built store, bypassing SQLite setup.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNotifier sets the live feed that receives fresh verdicts.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataAPIURL:     "http://localhost:9010",
		fetchTimeout:   5 * time.Second,
		maxSessionRefs: resolver.DefaultMaxRefs,
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      10000,
		dbPath:         "matchboard.db",
		logger:         nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting match dashboard service...")

	// Initialize components
	s.resolver = resolver.New(
		resolver.WithMaxRefs(s.maxSessionRefs),
	)
	s.stats = statsapi.New(s.dataAPIURL,
		statsapi.WithTimeout(s.fetchTimeout),
	)
	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("opening match store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}
	s.engine = consensus.New(s.store)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)

	// Create and start the consensus worker pool
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.engine, s.notifier)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "match dashboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("dataAPI", s.dataAPIURL),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping match dashboard service...")

	// Close the queue first: workers exit once the drained dequeue channel
	// closes, so the pool stop below returns promptly.
	if q, ok := s.eventQueue.(*eventqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Stop worker pool
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Close match store
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "match dashboard service stopped")
}

// AggregateSessions resolves token into session ids, fetches every
// referenced session concurrently and merges the results into one view.
func (s *Service) AggregateSessions(ctx context.Context, token string) (types.AggregateView, error) {
	ids := s.resolver.Resolve(token)
	metrics.RecordTokenResolved(len(ids))
	if len(ids) == 0 {
		return types.AggregateView{}, resolver.ErrNoSessionRefs
	}

	start := time.Now()
	bundles := s.stats.FetchAll(ctx, ids)

	view, err := aggregate.Build(ids, bundles)
	if err != nil {
		metrics.RecordAggregateMiss()
		return types.AggregateView{}, err
	}

	metrics.RecordAggregateBuilt()
	metrics.RecordAggregateLatency(float64(time.Since(start).Milliseconds()))

	s.logger.Debug(ctx, "aggregated sessions",
		logger.Int("requested", len(ids)),
		logger.Int("usable", view.SessionCount),
	)
	return view, nil
}

// Consensus evaluates the current verdict for a match from stored state.
func (s *Service) Consensus(ctx context.Context, matchID string) (types.ConsensusView, error) {
	return s.engine.Evaluate(ctx, matchID)
}

// SubmitScore persists a submission and hands it to the evaluation
// pipeline. Returns false on backpressure; the persisted row is rolled
// back so a retry starts clean.
func (s *Service) SubmitScore(ctx context.Context, sub *model.ScoreSubmission) (bool, error) {
	if err := s.store.AddSubmission(ctx, sub); err != nil {
		return false, err
	}
	metrics.RecordSubmissionRecorded()

	event := model.SubmissionEvent{
		SubmissionID: sub.ID,
		MatchID:      sub.MatchID,
	}
	if ok := s.eventQueue.Enqueue(ctx, event); !ok {
		// Roll back so a retry does not leave a duplicate row behind
		if err := s.store.RemoveSubmission(ctx, sub.ID); err != nil {
			s.logger.Warn(ctx, "rollback of backpressured submission failed",
				logger.String("submissionID", sub.ID),
				logger.Error(err),
			)
		}
		return false, nil
	}

	metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	return true, nil
}

// SetRoster replaces the registered roster of a match.
func (s *Service) SetRoster(ctx context.Context, matchID string, players []string) error {
	return s.store.SetRoster(ctx, matchID, players)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dataAPIURL":  s.dataAPIURL,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
