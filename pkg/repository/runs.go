package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/cubscope/pkg/domain"
)

// RunRepository stores history of collection runs
type RunRepository struct {
	db   *sqlx.DB
	keep int
}

// runSQL is the database representation of a run
type runSQL struct {
	ID            string    `db:"id"`
	Trigger       string    `db:"trigger_kind"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
	Count         int       `db:"item_count"`
	SourcesOK     int       `db:"sources_ok"`
	SourcesFailed int       `db:"sources_failed"`
	Error         string    `db:"error"`
}

// sourceRunSQL is per-source stats of a run
type sourceRunSQL struct {
	RunID    string `db:"run_id"`
	Name     string `db:"name"`
	URL      string `db:"url"`
	Entries  int    `db:"entries"`
	Accepted int    `db:"accepted"`
	Skipped  int    `db:"skipped"`
	Error    string `db:"error"`
}

// NewRunRepository makes a repository keeping at most keep runs, 0 keeps all
func NewRunRepository(db *sqlx.DB, keep int) *RunRepository {
	return &RunRepository{db: db, keep: keep}
}

// SaveRun stores a finished run with per-source stats and prunes old runs
func (r *RunRepository) SaveRun(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		err := r.saveRun(ctx, rec, sources)
		if err != nil && !isLockError(err) {
			return fmt.Errorf("%w: %w", errCritical, err)
		}
		return err
	}, errCritical)
}

func (r *RunRepository) saveRun(ctx context.Context, rec domain.RunRecord, sources []domain.SourceReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	row := runSQL{
		ID:            rec.ID,
		Trigger:       rec.Trigger,
		StartedAt:     rec.StartedAt.UTC(),
		FinishedAt:    rec.FinishedAt.UTC(),
		Count:         rec.Count,
		SourcesOK:     rec.SourcesOK,
		SourcesFailed: rec.SourcesFailed,
		Error:         rec.Error,
	}
	query := `INSERT INTO runs (id, trigger_kind, started_at, finished_at, item_count, sources_ok, sources_failed, error)
		VALUES (:id, :trigger_kind, :started_at, :finished_at, :item_count, :sources_ok, :sources_failed, :error)`
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range sources {
		srow := sourceRunSQL{RunID: rec.ID, Name: s.Name, URL: s.URL, Entries: s.Entries,
			Accepted: s.Accepted, Skipped: s.Skipped, Error: s.Error}
		query := `INSERT INTO source_runs (run_id, name, url, entries, accepted, skipped, error)
			VALUES (:run_id, :name, :url, :entries, :accepted, :skipped, :error)`
		if _, err := tx.NamedExecContext(ctx, query, srow); err != nil {
			return fmt.Errorf("insert source run %s: %w", s.Name, err)
		}
	}

	if r.keep > 0 {
		pruneIDs := `SELECT id FROM runs ORDER BY started_at DESC LIMIT -1 OFFSET ?`
		if _, err := tx.ExecContext(ctx, `DELETE FROM source_runs WHERE run_id IN (`+pruneIDs+`)`, r.keep); err != nil {
			return fmt.Errorf("prune source runs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+pruneIDs+`)`, r.keep); err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit latest runs, newest first
func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var rows []runSQL
	query := `SELECT id, trigger_kind, started_at, finished_at, item_count, sources_ok, sources_failed, error
		FROM runs ORDER BY started_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}

	res := make([]domain.RunRecord, 0, len(rows))
	for _, row := range rows {
		res = append(res, domain.RunRecord{
			ID:            row.ID,
			Trigger:       row.Trigger,
			StartedAt:     row.StartedAt.UTC(),
			FinishedAt:    row.FinishedAt.UTC(),
			Count:         row.Count,
			SourcesOK:     row.SourcesOK,
			SourcesFailed: row.SourcesFailed,
			Error:         row.Error,
		})
	}
	return res, nil
}

// SourceReports returns per-source stats for a run, in stored order
func (r *RunRepository) SourceReports(ctx context.Context, runID string) ([]domain.SourceReport, error) {
	var rows []sourceRunSQL
	query := `SELECT run_id, name, url, entries, accepted, skipped, error FROM source_runs WHERE run_id = ? ORDER BY rowid`
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("select source runs for %s: %w", runID, err)
	}

	res := make([]domain.SourceReport, 0, len(rows))
	for _, row := range rows {
		res = append(res, domain.SourceReport{Name: row.Name, URL: row.URL, Entries: row.Entries,
			Accepted: row.Accepted, Skipped: row.Skipped, Error: row.Error})
	}
	return res, nil
}
