// Package store persists finished profiling sessions in DuckDB.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/duckdb"
	"github.com/coral-mesh/skprof/internal/errors"
	"github.com/coral-mesh/skprof/internal/profiler/session"
	"github.com/coral-mesh/skprof/internal/retry"
)

// ErrNotFound is returned by Get for an unknown session id.
var ErrNotFound = stderrors.New("session not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		started_at   TIMESTAMP,
		generated_at TIMESTAMP,
		duration_ms  BIGINT,
		host_load    DOUBLE,
		scripts      INTEGER,
		records      INTEGER,
		executions   BIGINT,
		total_ms     DOUBLE,
		issues       INTEGER,
		report       TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		session_id TEXT,
		file       TEXT,
		line       INTEGER,
		kind       TEXT,
		name       TEXT,
		count      BIGINT,
		total_ns   BIGINT,
		min_ns     BIGINT,
		max_ns     BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		session_id  TEXT,
		seq         INTEGER,
		kind        TEXT,
		severity    TEXT,
		file        TEXT,
		line        INTEGER,
		description TEXT,
		suggestion  TEXT
	)`,
}

// Session is a saved session summary.
type Session struct {
	ID          string    `duckdb:"id,pk" json:"id" header:"ID"`
	StartedAt   time.Time `duckdb:"started_at" json:"started_at" header:"STARTED"`
	GeneratedAt time.Time `duckdb:"generated_at" json:"generated_at" header:"-"`
	DurationMs  int64     `duckdb:"duration_ms" json:"duration_ms" header:"DURATION_MS"`
	Load        float64   `duckdb:"host_load" json:"load" header:"LOAD"`
	Scripts     int       `duckdb:"scripts" json:"scripts" header:"SCRIPTS"`
	Records     int       `duckdb:"records" json:"records" header:"RECORDS"`
	Executions  int64     `duckdb:"executions" json:"executions" header:"EXECUTIONS"`
	TotalMs     float64   `duckdb:"total_ms" json:"total_ms" header:"TOTAL_MS"`
	Issues      int       `duckdb:"issues" json:"issues" header:"ISSUES"`
	Report      string    `duckdb:"report" json:"report,omitempty" header:"-"`
}

// Metric is one saved metric record.
type Metric struct {
	SessionID string `duckdb:"session_id,pk" json:"-"`
	File      string `duckdb:"file" json:"file"`
	Line      int    `duckdb:"line" json:"line"`
	Kind      string `duckdb:"kind" json:"kind"`
	Name      string `duckdb:"name" json:"name"`
	Count     int64  `duckdb:"count" json:"count"`
	TotalNs   int64  `duckdb:"total_ns" json:"total_ns"`
	MinNs     int64  `duckdb:"min_ns" json:"min_ns"`
	MaxNs     int64  `duckdb:"max_ns" json:"max_ns"`
}

// Issue is one saved issue.
type Issue struct {
	SessionID   string `duckdb:"session_id,pk" json:"-"`
	Seq         int    `duckdb:"seq" json:"seq"`
	Kind        string `duckdb:"kind" json:"kind"`
	Severity    string `duckdb:"severity" json:"severity"`
	File        string `duckdb:"file" json:"file"`
	Line        int    `duckdb:"line" json:"line"`
	Description string `duckdb:"description" json:"description"`
	Suggestion  string `duckdb:"suggestion" json:"suggestion"`
}

// Saved is a session with its metrics and issues.
type Saved struct {
	Session Session  `json:"session"`
	Metrics []Metric `json:"metrics"`
	Issues  []Issue  `json:"issues"`
}

// Config configures a Store.
type Config struct {
	// Path is the database file. Empty or ":memory:" keeps it in memory.
	Path string
	// Retries is the number of attempts for a conflicting write.
	Retries int
	// Backoff is the initial retry backoff.
	Backoff time.Duration
}

// ListOptions filters List. Zero values disable each filter.
type ListOptions struct {
	Limit int
	From  time.Time
	To    time.Time
}

// Store reads and writes session history.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	retry  retry.Config

	sessions *duckdb.Table[Session]
	metrics  *duckdb.Table[Metric]
	issues   *duckdb.Table[Issue]
}

// Open opens the database and applies the schema.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "store").Logger()

	db, err := duckdb.OpenDB(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := duckdb.Migrate(ctx, db, logger, schema); err != nil {
		errors.DeferClose(logger, db, "failed to close database")
		return nil, err
	}

	rc := duckdb.DefaultRetry
	rc.MaxRetries = constants.DefaultStoreRetries
	rc.InitialBackoff = constants.DefaultStoreBackoff
	if cfg.Retries > 0 {
		rc.MaxRetries = cfg.Retries
	}
	if cfg.Backoff > 0 {
		rc.InitialBackoff = cfg.Backoff
	}

	logger.Debug().Str("path", cfg.Path).Msg("Session store opened")
	return &Store{
		db:       db,
		logger:   logger,
		retry:    rc,
		sessions: duckdb.NewTable[Session](db, "sessions").WithRetry(rc),
		metrics:  duckdb.NewTable[Metric](db, "metrics").WithRetry(rc),
		issues:   duckdb.NewTable[Issue](db, "issues").WithRetry(rc),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a report result. Results without a session id get a new one.
// Saving an id again replaces the stored session with the newer result.
// It returns the id used.
func (s *Store) Save(ctx context.Context, res session.Result) (string, error) {
	id := res.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	records := res.Snapshot.Records()
	sess := Session{
		ID:          id,
		StartedAt:   res.GeneratedAt.Add(-res.Duration).UTC(),
		GeneratedAt: res.GeneratedAt.UTC(),
		DurationMs:  res.Duration.Milliseconds(),
		Load:        res.Load,
		Scripts:     res.Scripts.Len(),
		Records:     len(records),
		Executions:  res.Snapshot.TotalExecutions(),
		TotalMs:     float64(res.Snapshot.TotalNanos()) / 1e6,
		Issues:      len(res.Issues),
		Report:      res.Text,
	}

	metrics := make([]Metric, 0, len(records))
	for _, r := range records {
		metrics = append(metrics, Metric{
			SessionID: id,
			File:      r.File,
			Line:      r.Line,
			Kind:      string(r.Kind),
			Name:      r.Name,
			Count:     r.Count,
			TotalNs:   r.TotalNanos,
			MinNs:     r.MinNanos,
			MaxNs:     r.MaxNanos,
		})
	}
	issues := make([]Issue, 0, len(res.Issues))
	for i, is := range res.Issues {
		issues = append(issues, Issue{
			SessionID:   id,
			Seq:         i,
			Kind:        is.Kind.String(),
			Severity:    is.Severity.String(),
			File:        is.File,
			Line:        is.Line,
			Description: is.Description,
			Suggestion:  is.Suggestion,
		})
	}

	err := retry.Do(ctx, s.retry, func() error {
		return s.saveTx(ctx, &sess, metrics, issues)
	}, duckdb.IsConflict)
	if err != nil {
		return "", fmt.Errorf("failed to save session %s: %w", id, err)
	}

	s.logger.Info().
		Str("session_id", id).
		Int("metrics", len(metrics)).
		Int("issues", len(issues)).
		Msg("Session saved")
	return id, nil
}

func (s *Store) saveTx(ctx context.Context, sess *Session, metrics []Metric, issues []Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer errors.DeferRollback(s.logger, tx)

	// metrics and issues carry no unique index: DuckDB rejects a delete and
	// re-insert of the same key inside one transaction.
	if _, err := s.metrics.On(tx).DeleteWhere(ctx, "session_id", sess.ID); err != nil {
		return err
	}
	if _, err := s.issues.On(tx).DeleteWhere(ctx, "session_id", sess.ID); err != nil {
		return err
	}
	if err := s.sessions.On(tx).ReplaceAll(ctx, []Session{*sess}); err != nil {
		return err
	}
	if err := s.metrics.On(tx).InsertAll(ctx, metrics); err != nil {
		return err
	}
	if err := s.issues.On(tx).InsertAll(ctx, issues); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the most recent sessions first, filtered by generation time.
// The report text is not loaded.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Session, error) {
	q := s.sessions.Builder()
	if !opts.From.IsZero() {
		q.Gte("generated_at", opts.From.UTC())
	}
	if !opts.To.IsZero() {
		q.Lte("generated_at", opts.To.UTC())
	}
	rows, err := s.sessions.Query(ctx, q.OrderBy("-generated_at", "id").Limit(opts.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for i := range rows {
		rows[i].Report = ""
	}
	return rows, nil
}

// Get loads one session with its metrics and issues.
func (s *Store) Get(ctx context.Context, id string) (*Saved, error) {
	sess, err := s.sessions.Get(ctx, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	metrics, err := s.metrics.Query(ctx, s.metrics.Builder().Eq("session_id", id).OrderBy("file", "line", "kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	issues, err := s.issues.Query(ctx, s.issues.Builder().Eq("session_id", id).OrderBy("seq"))
	if err != nil {
		return nil, fmt.Errorf("failed to load issues: %w", err)
	}

	return &Saved{Session: *sess, Metrics: metrics, Issues: issues}, nil
}
