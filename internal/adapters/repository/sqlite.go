package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchboard/internal/domain/model"
	"github.com/okian/matchboard/pkg/metrics"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// formatTimestamp converts time.Time to a SQLite-friendly UTC ISO8601
// string. The Z suffix makes the round-trip come back as UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*sqliteConfig)

type sqliteConfig struct {
	busyTimeoutMS int
}

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(c *sqliteConfig) {
		if d > 0 {
			c.busyTimeoutMS = int(d / time.Millisecond)
		}
	}
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath and
// applies the schema.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	cfg := sqliteConfig{busyTimeoutMS: 5000}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := fmt.Sprintf(
		"PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = %d;",
		cfg.busyTimeoutMS,
	)
	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetRoster replaces the eligible participant list for a match.
func (s *SQLiteStore) SetRoster(ctx context.Context, matchID string, players []string) error {
	if matchID == "" {
		return ErrEmptyMatchID
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("set_roster", float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreError("set_roster")
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM match_rosters WHERE match_id = ?", matchID); err != nil {
		metrics.RecordStoreError("set_roster")
		return fmt.Errorf("clearing roster: %w", err)
	}
	for _, name := range players {
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO match_rosters (match_id, player_name)
			VALUES (?, ?)
			ON CONFLICT(match_id, player_name) DO NOTHING
		`, matchID, name); err != nil {
			metrics.RecordStoreError("set_roster")
			return fmt.Errorf("inserting roster row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordStoreError("set_roster")
		return fmt.Errorf("committing roster: %w", err)
	}
	return nil
}

// RosterSize returns the number of eligible participants for a match.
func (s *SQLiteStore) RosterSize(ctx context.Context, matchID string) (int, error) {
	if matchID == "" {
		return 0, ErrEmptyMatchID
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("roster_size", float64(time.Since(start).Milliseconds()))
	}()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_rosters WHERE match_id = ?", matchID,
	).Scan(&n)
	if err != nil {
		metrics.RecordStoreError("roster_size")
		return 0, fmt.Errorf("counting roster: %w", err)
	}
	return n, nil
}

// AddSubmission records one score submission. Fills in sub.ID and
// sub.SubmittedAt when unset.
func (s *SQLiteStore) AddSubmission(ctx context.Context, sub *model.ScoreSubmission) error {
	if sub.MatchID == "" {
		return ErrEmptyMatchID
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("add_submission", float64(time.Since(start).Milliseconds()))
	}()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_submissions (id, match_id, submitter, team_a, team_b, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.MatchID, sub.Submitter, sub.TeamA, sub.TeamB, formatTimestamp(sub.SubmittedAt))
	if err != nil {
		metrics.RecordStoreError("add_submission")
		return fmt.Errorf("inserting submission: %w", err)
	}
	return nil
}

// RemoveSubmission deletes a submission by id.
func (s *SQLiteStore) RemoveSubmission(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("remove_submission", float64(time.Since(start).Milliseconds()))
	}()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM score_submissions WHERE id = ?`, id); err != nil {
		metrics.RecordStoreError("remove_submission")
		return fmt.Errorf("deleting submission: %w", err)
	}
	return nil
}

// SubmissionsByMatch returns every submission for a match ordered by
// recording time, oldest first. Rowid breaks timestamp ties so evaluation
// order stays deterministic.
func (s *SQLiteStore) SubmissionsByMatch(ctx context.Context, matchID string) ([]model.ScoreSubmission, error) {
	if matchID == "" {
		return nil, ErrEmptyMatchID
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("submissions_by_match", float64(time.Since(start).Milliseconds()))
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, submitter, team_a, team_b, submitted_at
		FROM score_submissions
		WHERE match_id = ?
		ORDER BY submitted_at, rowid
	`, matchID)
	if err != nil {
		metrics.RecordStoreError("submissions_by_match")
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.ScoreSubmission
	for rows.Next() {
		var sub model.ScoreSubmission
		var submittedAt string
		if err := rows.Scan(&sub.ID, &sub.MatchID, &sub.Submitter, &sub.TeamA, &sub.TeamB, &submittedAt); err != nil {
			metrics.RecordStoreError("submissions_by_match")
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, submittedAt); err == nil {
			sub.SubmittedAt = t
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("submissions_by_match")
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}
	return subs, nil
}
