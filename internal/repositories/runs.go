package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/sqlite"
)

// DefaultRecentLimit is the number of runs Recent returns when limit is not positive.
const DefaultRecentLimit = 5

type RunRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRunRepository(db *sqlite.Database, logger *slog.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger.With(slog.String("source", "RunRepository")),
	}
}

// Record stores a finished simulation run.
func (r *RunRepository) Record(ctx context.Context, run models.SimulationRun) error {
	stmt := `INSERT INTO simulation_runs
    (id, workspace_id, bill_title, mode, event_count, error, started_at_unixms, finished_at_unixms)
VALUES (:id, :workspace_id, :bill_title, :mode, :event_count, :error, :started_at, :finished_at)`
	params := []any{
		sql.Named("id", run.ID),
		sql.Named("workspace_id", run.WorkspaceID),
		sql.Named("bill_title", run.BillTitle),
		sql.Named("mode", run.Mode),
		sql.Named("event_count", run.EventCount),
		sql.Named("error", run.Error),
		sql.Named("started_at", run.StartedAt.UnixMilli()),
		sql.Named("finished_at", run.FinishedAt.UnixMilli()),
	}
	if _, err := r.db.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "insert simulation run", slog.String("run_id", run.ID))
	}
	return nil
}

// Recent lists the latest runs of the workspace, newest first.
func (r *RunRepository) Recent(ctx context.Context, workspaceID string, limit int) ([]models.SimulationRun, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	stmt := `SELECT id, workspace_id, bill_title, mode, event_count, error, started_at_unixms, finished_at_unixms
FROM simulation_runs
WHERE workspace_id = :workspace_id
ORDER BY started_at_unixms DESC, rowid DESC
LIMIT :limit`
	rows, err := r.db.ReadOnly.QueryContext(ctx, stmt,
		sql.Named("workspace_id", workspaceID), sql.Named("limit", limit))
	if err != nil {
		return nil, errors.Wrap(err, "query simulation runs")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not close rows",
				errors.SlogError(errors.Wrap(closeErr, "close rows")))
		}
	}()

	var runs []models.SimulationRun
	for rows.Next() {
		var (
			run                   models.SimulationRun
			startedAt, finishedAt int64
		)
		if err = rows.Scan(&run.ID, &run.WorkspaceID, &run.BillTitle, &run.Mode, &run.EventCount, &run.Error,
			&startedAt, &finishedAt); err != nil {
			return nil, errors.Wrap(err, "scan simulation run")
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.FinishedAt = time.UnixMilli(finishedAt)
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return runs, nil
}
