package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// MergeConfig describes how staged rows merge into a table that carries a
// unique key.
type MergeConfig struct {
	Table   string   // target table, optionally schema-qualified
	Columns []string // columns supplied for every row
	Key     []string // columns of the unique constraint
	Update  []string // columns overwritten on conflict; empty keeps the existing row

	// Prefer picks the surviving row when one batch repeats a key: the row
	// with the highest value wins, NULLs last. Empty keeps an arbitrary row.
	Prefer string

	// Guard is an optional predicate that must hold for an existing row to be
	// updated. The existing row is aliased "t", the incoming one "EXCLUDED".
	Guard string
}

// Merge stages rows in a transaction-scoped temp table with COPY and merges
// them into the target with INSERT ... ON CONFLICT. It returns the number of
// rows inserted or updated.
func Merge(ctx context.Context, pool Pool, cfg MergeConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: merge: no columns specified")
	}
	if len(cfg.Key) == 0 {
		return 0, eris.New("db: merge: no key specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: merge: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := stageTable(cfg.Table)
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: merge: stage %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge: copy into stage for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeStatement(cfg, stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge: insert on conflict for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: merge: commit tx")
	}
	return tag.RowsAffected(), nil
}

func stageTable(table string) string {
	return "_stage_" + strings.ReplaceAll(table, ".", "_")
}

// mergeStatement builds the INSERT ... SELECT DISTINCT ON ... ON CONFLICT
// statement. DISTINCT ON keeps a repeated key from hitting the same target
// row twice, which Postgres rejects.
func mergeStatement(cfg MergeConfig, stage string) string {
	cols := quoteAndJoin(cfg.Columns)
	key := quoteAndJoin(cfg.Key)

	order := key
	if cfg.Prefer != "" {
		order += ", " + pgx.Identifier{cfg.Prefer}.Sanitize() + " DESC NULLS LAST"
	}

	action := "DO NOTHING"
	if len(cfg.Update) > 0 {
		set := make([]string, len(cfg.Update))
		for i, col := range cfg.Update {
			id := pgx.Identifier{col}.Sanitize()
			set[i] = id + " = EXCLUDED." + id
		}
		action = "DO UPDATE SET " + strings.Join(set, ", ")
		if cfg.Guard != "" {
			action += " WHERE " + cfg.Guard
		}
	}

	return fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT DISTINCT ON (%s) %s FROM %s ORDER BY %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table), cols,
		key, cols, pgx.Identifier{stage}.Sanitize(), order,
		key, action,
	)
}

// sanitizeTable handles schema-qualified names like "public.search_logs".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
