package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk upsert.
type UpsertConfig struct {
	Table        string
	Columns      []string
	ConflictKeys []string
	// UpdateCols defaults to every column outside ConflictKeys.
	UpdateCols []string
}

func (c UpsertConfig) validate() error {
	if c.Table == "" {
		return eris.New("db: upsert: no table specified")
	}
	if len(c.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(c.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (c UpsertConfig) updateCols() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	var out []string
	for _, col := range c.Columns {
		if !slices.Contains(c.ConflictKeys, col) {
			out = append(out, col)
		}
	}
	return out
}

// tempTable names the per-transaction staging table for table.
func tempTable(table string) string {
	return "_stage_" + strings.ReplaceAll(table, ".", "_")
}

// upsertSQL builds the INSERT ... SELECT ... ON CONFLICT statement that moves
// staged rows into the target.
func upsertSQL(cfg UpsertConfig) string {
	cols := quoteAndJoin(cfg.Columns)
	update := cfg.updateCols()

	action := "DO NOTHING"
	if len(update) > 0 {
		sets := make([]string, len(update))
		for i, col := range update {
			q := pgx.Identifier{col}.Sanitize()
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		identifier(cfg.Table).Sanitize(),
		cols,
		cols,
		pgx.Identifier{tempTable(cfg.Table)}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	)
}

// BulkUpsert stages rows in a temp table with COPY, then merges them into the
// target in one transaction. Re-saving the same keys overwrites the update
// columns.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := pgx.Identifier{tempTable(cfg.Table)}
	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		stage.Sanitize(), identifier(cfg.Table).Sanitize())
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create stage for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, stage, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into stage for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, upsertSQL(cfg))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
