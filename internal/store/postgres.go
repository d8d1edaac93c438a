package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/hospital-cli/internal/db"
	"github.com/sells-group/hospital-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgRunColumns = `id, kind, source, status, COALESCE(stats::text, ''), error, created_at, updated_at`

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, kind, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE runs SET status = $1, stats = $2::jsonb, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT ` + pgRunColumns + ` FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS failures (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	item_id    TEXT NOT NULL DEFAULT '',
	item_name  TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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

var (
	failureColumns  = []string{"run_id", "item_id", "item_name", "error", "error_type", "created_at"}
	decisionColumns = []string{"run_id", "dataset", "facility", "group_name", "status", "score", "signals", "row_count"}
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	id := newID()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, preparedStatements["insert_run"],
		id, string(kind), source, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return err
	}
	var arg any
	if statsJSON != "" {
		arg = statsJSON
	}

	tag, err := s.pool.Exec(ctx, preparedStatements["complete_run"],
		string(model.RunStatusComplete), arg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr error) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["fail_run"],
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, preparedStatements["get_run"], runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// AddFailures streams failures in with COPY.
func (s *PostgresStore) AddFailures(ctx context.Context, failures []model.Failure) error {
	rows := make([][]any, len(failures))
	for i, f := range failures {
		rows[i] = []any{f.RunID, f.ItemID, f.ItemName, f.Error, f.ErrorType, createdAt(f.CreatedAt)}
	}
	_, err := db.CopyFrom(ctx, s.pool, "failures", failureColumns, rows)
	return eris.Wrap(err, "postgres: add failures")
}

func (s *PostgresStore) ListFailures(ctx context.Context, runID string) ([]model.Failure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, item_id, item_name, error, error_type, created_at FROM failures WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list failures %s", runID)
	}
	defer rows.Close()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.ID, &f.RunID, &f.ItemID, &f.ItemName, &f.Error, &f.ErrorType, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

// SaveDecisions upserts on (run_id, dataset, facility, group_name), so saving
// a re-run of the same dataset under one run replaces earlier decisions.
func (s *PostgresStore) SaveDecisions(ctx context.Context, decisions []model.Decision) error {
	rows := make([][]any, len(decisions))
	for i, d := range decisions {
		rows[i] = []any{d.RunID, d.Dataset, d.Facility, d.GroupName, d.Status, int32(d.Score), d.Signals, int32(d.Rows)}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "decisions",
		Columns:      decisionColumns,
		ConflictKeys: []string{"run_id", "dataset", "facility", "group_name"},
	}, rows)
	return eris.Wrap(err, "postgres: save decisions")
}

func (s *PostgresStore) ListDecisions(ctx context.Context, runID string) ([]model.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, dataset, facility, group_name, status, score, signals, row_count
		 FROM decisions WHERE run_id = $1 ORDER BY dataset, status, facility, group_name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list decisions %s", runID)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var d model.Decision
		if err := rows.Scan(&d.RunID, &d.Dataset, &d.Facility, &d.GroupName, &d.Status, &d.Score, &d.Signals, &d.Rows); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list decisions iterate")
}
