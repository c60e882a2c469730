// Package journal records run lifecycle events in SQLite.
//
// A Journal is attached to runs as a telemetry hook:
//
//	j, err := journal.Open(ctx, "file:runs.db")
//	run := graph.NewRun(ctx, workflow.WithTelemetry(j.Hook(graph.Name())))
//
// Only event metadata is stored (kind, stage, sequence and the telemetry
// attributes). Stage payloads are never written.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/logger"
	"github.com/kbukum/stageflow/observability"
	"github.com/kbukum/stageflow/workflow"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "sqlite"

// Entry is one journaled event.
type Entry struct {
	RunID   string
	Seq     int
	Graph   string
	Kind    workflow.EventKind
	StageID string
	// Attrs holds the telemetry attributes decoded from JSON, so numbers
	// come back as float64.
	Attrs map[string]any
	At    time.Time
}

// RunSummary describes the latest journaled event of a run.
type RunSummary struct {
	RunID     string
	Graph     string
	LastKind  workflow.EventKind
	Events    int
	StartedAt time.Time
}

// Journal is an append-only event log. It is safe for concurrent use.
type Journal struct {
	db           *sql.DB
	log          *logger.Logger
	writeTimeout time.Duration
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used for hook write failures.
func WithLogger(log *logger.Logger) Option {
	return func(j *Journal) { j.log = log }
}

// WithWriteTimeout bounds each hook write. The default is 5s.
func WithWriteTimeout(d time.Duration) Option {
	return func(j *Journal) { j.writeTimeout = d }
}

// Open connects to the SQLite database at dsn, for example "file:runs.db"
// or ":memory:", and creates the schema if needed.
func Open(ctx context.Context, dsn string, opts ...Option) (*Journal, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dsn, err)
	}
	// SQLite has a single writer, and every connection to ":memory:" is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.ServiceUnavailable("journal").WithCause(err)
	}
	j, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New creates a Journal on an existing SQLite handle and creates the schema
// if needed. Close closes db.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Journal, error) {
	j := &Journal{db: db, log: logger.Nop(), writeTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(j)
	}
	j.log = j.log.WithComponent("journal")

	if err := j.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			graph TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			stage_id TEXT NOT NULL DEFAULT '',
			attrs TEXT NOT NULL DEFAULT '{}',
			at INTEGER NOT NULL,
			UNIQUE (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_graph ON run_events(graph, id);
	`)
	return err
}

// Append stores one entry. A repeated (run, seq) pair is rejected.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	attrs, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("journal: encode attributes: %w", err)
	}
	if e.Attrs == nil {
		attrs = []byte("{}")
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, seq, graph, kind, stage_id, attrs, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Seq, e.Graph, string(e.Kind), e.StageID, string(attrs), at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal: append %s/%d: %w", e.RunID, e.Seq, err)
	}
	return nil
}

// Hook returns a telemetry hook that appends every event of a run of graph.
// Write failures are logged and never reach the run.
func (j *Journal) Hook(graph string) workflow.TelemetryFunc {
	return func(kind workflow.EventKind, stageID string, attrs map[string]any) {
		e := Entry{Graph: graph, Kind: kind, StageID: stageID, Attrs: attrs, At: time.Now()}
		e.RunID, _ = attrs[observability.AttrRunID].(string)
		e.Seq, _ = attrs[observability.AttrEventSeq].(int)

		ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
		defer cancel()
		if err := j.Append(ctx, e); err != nil {
			j.log.WithError(err).Error("journal write failed", logger.Fields(
				logger.FieldRunID, e.RunID,
				logger.FieldEventKind, string(kind),
			))
		}
	}
}

// List returns the entries of a run in sequence order.
func (j *Journal) List(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, graph, kind, stage_id, attrs, at
		FROM run_events
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: list %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			kind  string
			attrs string
			atN   int64
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Graph, &kind, &e.StageID, &attrs, &atN); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &e.Attrs); err != nil {
			return nil, fmt.Errorf("journal: decode attributes of %s/%d: %w", e.RunID, e.Seq, err)
		}
		e.Kind = workflow.EventKind(kind)
		e.At = time.Unix(0, atN)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Runs summarizes the journaled runs of graph, most recent first.
func (j *Journal) Runs(ctx context.Context, graph string) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT e.run_id, e.graph, e.kind, s.events, s.started
		FROM run_events e
		JOIN (
			SELECT run_id, MAX(seq) AS last_seq, COUNT(*) AS events, MIN(at) AS started, MIN(id) AS first_id
			FROM run_events
			WHERE graph = ?
			GROUP BY run_id
		) s ON e.run_id = s.run_id AND e.seq = s.last_seq
		ORDER BY s.first_id DESC`, graph)
	if err != nil {
		return nil, fmt.Errorf("journal: runs of %s: %w", graph, err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s    RunSummary
			kind string
			atN  int64
		)
		if err := rows.Scan(&s.RunID, &s.Graph, &kind, &s.Events, &atN); err != nil {
			return nil, err
		}
		s.LastKind = workflow.EventKind(kind)
		s.StartedAt = time.Unix(0, atN)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
