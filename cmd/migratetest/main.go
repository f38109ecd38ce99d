package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/repositories"
	"github.com/myrjola/billeffect/internal/sqlite"
	"github.com/myrjola/billeffect/internal/testhelpers"
)

// main opens a copy of the production database, which migrates it to the current schema, and checks that the
// run log survived the migration.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("BILLEFFECT_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "BILLEFFECT_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	for _, table := range []string{"simulation_runs", "sessions"} {
		var count int
		if err = db.ReadOnly.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil { //nolint:gosec // constant table names.
			logger.LogAttrs(ctx, slog.LevelError, "error counting rows",
				slog.String("table", table), errors.SlogError(err))
			os.Exit(1)
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "row count", slog.String("table", table), slog.Int("count", count))
	}

	// The newest runs must still scan into the current model.
	var workspaceID string
	err = db.ReadOnly.QueryRowContext(ctx,
		`SELECT workspace_id FROM simulation_runs ORDER BY started_at_unixms DESC LIMIT 1`).Scan(&workspaceID)
	switch {
	case err == nil:
		runs := repositories.NewRunRepository(db, logger)
		if _, err = runs.Recent(ctx, workspaceID, repositories.DefaultRecentLimit); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error reading recent runs", errors.SlogError(err))
			os.Exit(1)
		}
	case !errors.Is(err, sql.ErrNoRows):
		logger.LogAttrs(ctx, slog.LevelError, "error fetching latest run", errors.SlogError(err))
		os.Exit(1)
	}

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
