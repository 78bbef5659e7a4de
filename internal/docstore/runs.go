package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, run_id, case_id, step, pass, summary_json, started_at, updated_at, completed_at`

// StartRun records the beginning of a grouping run for a case.
func (s *Store) StartRun(ctx context.Context, caseID string) (*Run, error) {
	if caseID == "" {
		return nil, errors.New("run requires a case id")
	}
	now := timestamp(time.Now())
	runID := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO grouping_runs (run_id, case_id, step, pass, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, caseID, StepFetch, 1, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getRunByRowID(ctx, id)
}

// CheckpointRun persists the run's current step and pass so a retry resumes
// from the last completed step instead of repeating oracle spend.
func (s *Store) CheckpointRun(ctx context.Context, runID string, step RunStep, pass int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE grouping_runs SET step = ?, pass = ?, updated_at = ? WHERE run_id = ?`,
		step, pass, timestamp(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("checkpoint run: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished and stores its summary.
func (s *Store) CompleteRun(ctx context.Context, runID, summaryJSON string) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE grouping_runs
		 SET step = ?, summary_json = ?, updated_at = ?, completed_at = ?
		 WHERE run_id = ?`,
		StepCompleted, nullableString(summaryJSON), now, now, runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// ActiveRun returns the most recent unfinished run for a case, if any.
func (s *Store) ActiveRun(ctx context.Context, caseID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM grouping_runs
		 WHERE case_id = ? AND completed_at IS NULL
		 ORDER BY id DESC LIMIT 1`,
		caseID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active run: %w", err)
	}
	return run, nil
}

// RecentRuns returns a case's latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, caseID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM grouping_runs WHERE case_id = ? ORDER BY id DESC LIMIT ?`,
		caseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) getRunByRowID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM grouping_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		stepStr      string
		summary      sql.NullString
		startedRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.CaseID,
		&stepStr,
		&run.Pass,
		&summary,
		&startedRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	run.Step = RunStep(stepStr)
	run.SummaryJSON = summary.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			run.CompletedAt = &completed
		}
	}
	return &run, nil
}
