package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BulkUpsert copies rows into a transaction-scoped temp table and merges
// them into the target with INSERT ... ON CONFLICT DO UPDATE.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	temp := "_tmp_upsert_" + strings.ReplaceAll(cfg.Table, ".", "_")
	tempIdent := pgx.Identifier{temp}.Sanitize()

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		tempIdent, identifier(cfg.Table).Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{temp}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, upsertSQL(cfg, tempIdent))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func upsertSQL(cfg UpsertConfig, source string) string {
	update := cfg.UpdateCols
	if update == nil {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Columns {
			if !keys[c] {
				update = append(update, c)
			}
		}
	}

	set := make([]string, len(update))
	for i, c := range update {
		col := pgx.Identifier{c}.Sanitize()
		set[i] = col + " = EXCLUDED." + col
	}

	cols := quoteAndJoin(cfg.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		identifier(cfg.Table).Sanitize(), cols, cols, source,
		quoteAndJoin(cfg.ConflictKeys), strings.Join(set, ", "),
	)
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
