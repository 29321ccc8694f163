package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/db"
	"github.com/urbanhydro/abimo/internal/model"
)

// PostgresStore implements Store and ResultStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_run_result": `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, input, status, result, created_at, updated_at FROM runs WHERE id = $1`,
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

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// run_results keeps every exported result; parcel_results holds the latest
// result per parcel code. geom is little-endian EWKB, readable with
// ST_GeomFromEWKB.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	input      JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS run_results (
	run_id              TEXT NOT NULL REFERENCES runs(id),
	code                TEXT NOT NULL,
	runoff              DOUBLE PRECISION NOT NULL,
	surface_runoff      DOUBLE PRECISION NOT NULL,
	infiltration        DOUBLE PRECISION NOT NULL,
	runoff_volume       DOUBLE PRECISION NOT NULL,
	surface_volume      DOUBLE PRECISION NOT NULL,
	infiltration_volume DOUBLE PRECISION NOT NULL,
	area                DOUBLE PRECISION NOT NULL,
	evaporation         DOUBLE PRECISION NOT NULL,
	geom                BYTEA
);

CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);

CREATE TABLE IF NOT EXISTS parcel_results (
	run_id              TEXT NOT NULL REFERENCES runs(id),
	code                TEXT PRIMARY KEY,
	runoff              DOUBLE PRECISION NOT NULL,
	surface_runoff      DOUBLE PRECISION NOT NULL,
	infiltration        DOUBLE PRECISION NOT NULL,
	runoff_volume       DOUBLE PRECISION NOT NULL,
	surface_volume      DOUBLE PRECISION NOT NULL,
	infiltration_volume DOUBLE PRECISION NOT NULL,
	area                DOUBLE PRECISION NOT NULL,
	evaporation         DOUBLE PRECISION NOT NULL,
	geom                BYTEA
);
`

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

func (s *PostgresStore) CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, inputJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Input:     input,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

// UpdateRunResult stores result and moves the run to result.Status.
func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(result.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, input, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND input->>'source' = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
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
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveResults appends rows to run_results and refreshes parcel_results.
func (s *PostgresStore) SaveResults(ctx context.Context, runID string, rows []ResultRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = resultValues(runID, r)
	}

	n, err := db.CopyRows(ctx, s.pool, "run_results", resultColumns, values)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save results of run %s", runID)
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "parcel_results",
		Columns:      resultColumns,
		ConflictKeys: []string{"code"},
	}, values); err != nil {
		return n, eris.Wrapf(err, "postgres: refresh parcel results of run %s", runID)
	}
	return n, nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var inputJSON, resultJSON []byte

	if err := row.Scan(&r.ID, &inputJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
