package main

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/config"
	"github.com/urbanhydro/abimo/internal/input"
	"github.com/urbanhydro/abimo/internal/pipeline"
	"github.com/urbanhydro/abimo/internal/store"
)

// initStore opens and migrates the configured run store. It returns nil
// when run tracking is disabled.
func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Driver {
	case "":
		return nil, nil
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "abimo.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{
			MaxConns: c.MaxConns,
			MinConns: c.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// requireStore is initStore for commands that only make sense with a store.
func requireStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run tracking is disabled, set store.driver to sqlite or postgres")
	}
	return st, nil
}

func inputOptions(c *config.Config) input.Options {
	opts := input.Options{
		Latin1: c.Run.CSVLatin1,
		SRID:   c.Run.SRID,
		Fetch:  c.Fetch,
	}
	if r, _ := utf8.DecodeRuneInString(c.Run.CSVDelimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}

// newPipeline builds a pipeline from the model and run settings.
func newPipeline(c *config.Config, st store.Store, m pipeline.Metrics) (*pipeline.Pipeline, error) {
	params, err := c.Model.Parameters()
	if err != nil {
		return nil, err
	}
	return pipeline.New(params, pipeline.Options{
		Workers:          c.Run.Workers,
		BatchSize:        c.Run.BatchSize,
		ProgressInterval: c.Run.ProgressInterval,
		Store:            st,
		Metrics:          m,
	})
}
