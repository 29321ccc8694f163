package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams src into table with the COPY protocol. table may be
// schema-qualified ("abimo.run_results").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, src pgx.CopyFromSource) (int64, error) {
	n, err := pool.CopyFrom(ctx, identifier(table), columns, src)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// CopyRows is CopyFrom for rows already held in memory.
func CopyRows(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return CopyFrom(ctx, pool, table, columns, pgx.CopyFromRows(rows))
}

func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}
