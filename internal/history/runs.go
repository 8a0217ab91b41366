package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, workflow, input, output, status, error_kind, error_message, detected_language, transcript, started_at, finished_at"

// timeLayout keeps a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound reports a missing run.
var ErrNotFound = errors.New("run not found")

// Begin records a new running entry.
func (s *Store) Begin(ctx context.Context, id, workflow, input string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id is required")
	}
	if strings.TrimSpace(workflow) == "" {
		return nil, errors.New("workflow is required")
	}
	started := time.Now().UTC()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, workflow, input, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, workflow, input, StatusRunning, started.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, Workflow: workflow, Input: input, Status: StatusRunning, StartedAt: started}, nil
}

// Finish stores the outcome of a running entry.
func (s *Store) Finish(ctx context.Context, id string, done Completion) error {
	if !done.Status.Terminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", id, done.Status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET output = ?, status = ?, error_kind = ?, error_message = ?,
             detected_language = ?, transcript = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(done.Output),
		done.Status,
		nullableString(done.ErrorKind),
		nullableString(done.ErrorMessage),
		nullableString(done.DetectedLanguage),
		nullableString(done.Transcript),
		time.Now().UTC().Format(timeLayout),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get fetches a run by identifier. Unknown IDs return ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Run, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Workflow != "" {
		clauses = append(clauses, "workflow = ?")
		args = append(args, filter.Workflow)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// MarkInterrupted closes runs left running by a process that exited early.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted, time.Now().UTC().Format(timeLayout), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished runs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		StatusRunning, cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		output      sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		language    sql.NullString
		transcript  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Workflow,
		&run.Input,
		&output,
		&status,
		&errorKind,
		&errorMsg,
		&language,
		&transcript,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Output = output.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMsg.String
	run.DetectedLanguage = language.String
	run.Transcript = transcript.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return &run, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
