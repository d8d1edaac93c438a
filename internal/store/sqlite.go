package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/hospital-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS failures (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	item_id    TEXT NOT NULL DEFAULT '',
	item_name  TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decisions (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	dataset    TEXT NOT NULL,
	facility   TEXT NOT NULL,
	group_name TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	score      INTEGER NOT NULL DEFAULT 0,
	signals    TEXT NOT NULL DEFAULT '',
	row_count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, dataset, facility, group_name)
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_failures_run_id ON failures(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	id := newID()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), source, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, kind, source, status, stats, error, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AddFailures(ctx context.Context, failures []model.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin failures tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO failures (run_id, item_id, item_name, error, error_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare failure insert")
	}
	defer stmt.Close()

	for _, f := range failures {
		if _, err := stmt.ExecContext(ctx, f.RunID, f.ItemID, f.ItemName, f.Error, f.ErrorType, createdAt(f.CreatedAt)); err != nil {
			return eris.Wrapf(err, "sqlite: insert failure for %s", f.ItemID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit failures")
}

func (s *SQLiteStore) ListFailures(ctx context.Context, runID string) ([]model.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, item_id, item_name, error, error_type, created_at FROM failures WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list failures %s", runID)
	}
	defer rows.Close()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.ID, &f.RunID, &f.ItemID, &f.ItemName, &f.Error, &f.ErrorType, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

func (s *SQLiteStore) SaveDecisions(ctx context.Context, decisions []model.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin decisions tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decisions (run_id, dataset, facility, group_name, status, score, signals, row_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, dataset, facility, group_name) DO UPDATE SET
		   status = excluded.status, score = excluded.score, signals = excluded.signals, row_count = excluded.row_count`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare decision upsert")
	}
	defer stmt.Close()

	for _, d := range decisions {
		if _, err := stmt.ExecContext(ctx, d.RunID, d.Dataset, d.Facility, d.GroupName, d.Status, d.Score, d.Signals, d.Rows); err != nil {
			return eris.Wrapf(err, "sqlite: upsert decision %s", d.Facility)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit decisions")
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, runID string) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dataset, facility, group_name, status, score, signals, row_count
		 FROM decisions WHERE run_id = ? ORDER BY dataset, status, facility, group_name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list decisions %s", runID)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var d model.Decision
		if err := rows.Scan(&d.RunID, &d.Dataset, &d.Facility, &d.GroupName, &d.Status, &d.Score, &d.Signals, &d.Rows); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list decisions iterate")
}

// checkRowsAffected verifies that an UPDATE/DELETE affected at least one row.
func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun reads one row selected with runColumns. Both backends store stats as
// JSON text, empty until the run completes.
func scanRun(row scannable) (*model.Run, error) {
	var (
		r         model.Run
		kind      string
		status    string
		statsJSON string
	)
	if err := row.Scan(&r.ID, &kind, &r.Source, &status, &statsJSON, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Kind = model.RunKind(kind)
	r.Status = model.RunStatus(status)

	if statsJSON != "" {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal([]byte(statsJSON), r.Stats); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal stats")
		}
	}
	return &r, nil
}

func marshalStats(stats *model.RunStats) (string, error) {
	if stats == nil {
		return "", nil
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal stats")
	}
	return string(b), nil
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
