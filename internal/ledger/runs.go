package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"splice/internal/workflow"
)

// Run statuses stored in runs.status.
const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// DefaultHistoryLimit caps ListRuns when no limit is given.
const DefaultHistoryLimit = 20

var _ workflow.Recorder = (*Store)(nil)

// Run is one row of run history.
type Run struct {
	RunID          string            `json:"runId"`
	ProjectID      string            `json:"projectId"`
	StartedAt      time.Time         `json:"startedAt"`
	CompletedAt    time.Time         `json:"completedAt"`
	Status         string            `json:"status"`
	StepsTotal     int               `json:"stepsTotal"`
	StepsCompleted int               `json:"stepsCompleted"`
	FailedStep     string            `json:"failedStep,omitempty"`
	Error          string            `json:"error,omitempty"`
	Summary        *workflow.Summary `json:"summary,omitempty"`
}

// Duration reports how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.CompletedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StartRun inserts a running row for the run.
func (s *Store) StartRun(ctx context.Context, run workflow.RunRecord) error {
	if strings.TrimSpace(run.RunID) == "" {
		return fmt.Errorf("start run: run id is empty")
	}
	startedAt := run.StartedAt
	if startedAt == "" {
		startedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	err := s.exec(ctx,
		`INSERT INTO runs (run_id, project_id, started_at, status, steps_total)
         VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.ProjectID, startedAt, RunRunning, len(run.Steps),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordEvent appends a telemetry event to the run's history.
func (s *Store) RecordEvent(ctx context.Context, ev workflow.TelemetryEvent) error {
	at := ev.At
	if at == "" {
		at = time.Now().UTC().Format(time.RFC3339Nano)
	}
	err := s.exec(ctx,
		`INSERT INTO stage_events (run_id, type, stage, status, provider, attempt, kind, detail, elapsed_ms, at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.Type, nullString(ev.Stage), nullString(ev.Status), nullString(ev.Provider),
		ev.Attempt, nullString(ev.Kind), nullString(ev.Detail), ev.ElapsedMs, at,
	)
	if err != nil {
		return fmt.Errorf("insert stage event: %w", err)
	}
	return nil
}

// FinishRun stores the run outcome and its summary. A run that was never
// started is inserted.
func (s *Store) FinishRun(ctx context.Context, summary *workflow.Summary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("finish run: summary has no run id")
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	status := RunDone
	if !summary.OK {
		status = RunFailed
	}
	completedAt := summary.CompletedAt
	if completedAt == "" {
		completedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	startedAt := summary.StartedAt
	if startedAt == "" {
		startedAt = completedAt
	}
	err = s.exec(ctx,
		`INSERT INTO runs (run_id, project_id, started_at, completed_at, status, steps_total, steps_completed, failed_step, error, summary_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET
             completed_at = excluded.completed_at,
             status = excluded.status,
             steps_completed = excluded.steps_completed,
             failed_step = excluded.failed_step,
             error = excluded.error,
             summary_json = excluded.summary_json`,
		summary.RunID, summary.ProjectID, startedAt, completedAt, status,
		len(summary.Steps), len(summary.CompletedSteps),
		nullString(summary.FailedStep), nullString(summary.Error), string(encoded),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = `run_id, project_id, started_at, completed_at, status, steps_total,
    steps_completed, failed_step, error, summary_json`

// ListRuns returns the most recently started runs, newest first. An empty projectID
// lists every project.
func (s *Store) ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun fetches a run by id. It returns nil when the run is unknown.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Events returns the stored events of a run in recording order.
func (s *Store) Events(ctx context.Context, runID string) ([]workflow.TelemetryEvent, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.type, e.stage, e.status, e.provider, e.attempt, e.kind, e.detail, e.elapsed_ms, e.at, r.project_id
         FROM stage_events e JOIN runs r ON r.run_id = e.run_id
         WHERE e.run_id = ? ORDER BY e.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []workflow.TelemetryEvent{}
	for rows.Next() {
		var ev workflow.TelemetryEvent
		var stageName, status, provider, kind, detail sql.NullString
		if err := rows.Scan(&ev.Type, &stageName, &status, &provider, &ev.Attempt, &kind, &detail,
			&ev.ElapsedMs, &ev.At, &ev.ProjectID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.RunID = runID
		ev.Stage = stageName.String
		ev.Status = status.String
		ev.Provider = provider.String
		ev.Kind = kind.String
		ev.Detail = detail.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Prune deletes all but the newest keep runs of a project, with their events.
func (s *Store) Prune(ctx context.Context, projectID string, keep int) (int64, error) {
	ctx = ensureContext(ctx)
	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE project_id = ? AND run_id NOT IN (
                 SELECT run_id FROM runs WHERE project_id = ?
                 ORDER BY rowid DESC LIMIT ?)`,
			projectID, projectID, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedAt string
	var completedAt, failedStep, errText, summary sql.NullString
	err := row.Scan(&run.RunID, &run.ProjectID, &startedAt, &completedAt, &run.Status,
		&run.StepsTotal, &run.StepsCompleted, &failedStep, &errText, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt.String)
	run.FailedStep = failedStep.String
	run.Error = errText.String
	if summary.Valid && summary.String != "" {
		var decoded workflow.Summary
		if err := json.Unmarshal([]byte(summary.String), &decoded); err == nil {
			run.Summary = &decoded
		}
	}
	return run, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
