package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const historyFileName = "history.db"

// History is the append-only log of completed work phases. Stats are derived
// from it on every query.
type History struct {
	db    *sql.DB
	clock clockwork.Clock
}

// OpenHistory opens or creates the completion log under dataDir.
func OpenHistory(dataDir string, clock clockwork.Clock) (*History, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errs.Persistence("create data directory", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, historyFileName))
	if err != nil {
		return nil, errs.Persistence("open history", err)
	}
	db.SetMaxOpenConns(1)
	history := &History{db: db, clock: clock}
	if err := history.migrate(); err != nil {
		_ = db.Close()
		return nil, errs.Persistence("migrate history", err)
	}
	return history, nil
}

// Close closes the underlying database.
func (history *History) Close() error {
	return history.db.Close()
}

func (history *History) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS completions (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			day TEXT NOT NULL,
			profile_id TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_completions_day ON completions(day);`,
	}
	for _, stmt := range stmts {
		if _, err := history.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores record once per run id. It reports whether a row was added;
// a repeated run id is ignored.
func (history *History) Append(ctx context.Context, record model.CompletionRecord) (bool, error) {
	if record.RunID == "" {
		return false, errs.InvalidArgument("completion record has no run id")
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = history.clock.Now()
	}
	if record.Date == "" {
		record.Date = record.CompletedAt.Local().Format(model.DateLayout)
	}

	res, err := history.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO completions (run_id, day, profile_id, completed_at) VALUES (?, ?, ?, ?)`,
		record.RunID,
		record.Date,
		record.ProfileID,
		record.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, errs.Persistence("append completion", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errs.Persistence("append completion", err)
	}
	return affected > 0, nil
}

// Records returns every completion on day, oldest first.
func (history *History) Records(ctx context.Context, day string) ([]model.CompletionRecord, error) {
	rows, err := history.db.QueryContext(ctx,
		`SELECT run_id, day, profile_id, completed_at FROM completions WHERE day = ? ORDER BY id ASC`, day)
	if err != nil {
		return nil, errs.Persistence("list completions", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []model.CompletionRecord
	for rows.Next() {
		var record model.CompletionRecord
		var completedAt string
		if err := rows.Scan(&record.RunID, &record.Date, &record.ProfileID, &completedAt); err != nil {
			return nil, errs.Persistence("scan completion", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, errs.Persistence("parse completion time", err)
		}
		record.CompletedAt = parsed
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("list completions", err)
	}
	return records, nil
}

// Stats computes today's count and the current streak. A streak is still
// alive when the last completion was yesterday.
func (history *History) Stats(ctx context.Context) (model.Stats, error) {
	now := history.clock.Now().Local()
	today := now.Format(model.DateLayout)

	var stats model.Stats
	row := history.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completions WHERE day = ?`, today)
	if err := row.Scan(&stats.SessionsToday); err != nil {
		return model.Stats{}, errs.Persistence("count completions", err)
	}

	rows, err := history.db.QueryContext(ctx,
		`SELECT DISTINCT day FROM completions WHERE day <= ? ORDER BY day DESC`, today)
	if err != nil {
		return model.Stats{}, errs.Persistence("list completion days", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return model.Stats{}, errs.Persistence("scan completion day", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, errs.Persistence("list completion days", err)
	}

	stats.Streak = streak(days, now)
	return stats, nil
}

// streak counts consecutive days in days (sorted newest first) ending today
// or yesterday.
func streak(days []string, now time.Time) int {
	if len(days) == 0 {
		return 0
	}
	expected := now
	if days[0] != expected.Format(model.DateLayout) {
		expected = expected.AddDate(0, 0, -1)
		if days[0] != expected.Format(model.DateLayout) {
			return 0
		}
	}
	count := 0
	for _, day := range days {
		if day != expected.Format(model.DateLayout) {
			break
		}
		count++
		expected = expected.AddDate(0, 0, -1)
	}
	return count
}
