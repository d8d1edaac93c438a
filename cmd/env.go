package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/config"
	"github.com/sells-group/hospital-cli/internal/fetcher"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/resilience"
	"github.com/sells-group/hospital-cli/internal/store"
)

// initStore opens the configured run store with migrations applied.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// newFetcher builds the rate-limited, retrying HTTP client from config.
func newFetcher(fc config.FetchConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         fc.UserAgent,
		Timeout:           time.Duration(fc.TimeoutSecs) * time.Second,
		RequestsPerSecond: fc.RequestsPerSecond,
		Burst:             fc.Burst,
		Retry: resilience.RetryConfig{
			MaxAttempts:    fc.MaxAttempts,
			InitialBackoff: time.Duration(fc.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(fc.MaxBackoffMs) * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0.25,
		},
		Breakers: resilience.NewHostBreakers(fc.BreakerThreshold, time.Duration(fc.BreakerCooldownS)*time.Second),
	})
}

// tracker records one command invocation as a run.
type tracker struct {
	st    store.Store
	run   *model.Run
	start time.Time
}

func startRun(ctx context.Context, st store.Store, kind model.RunKind, source string) (*tracker, error) {
	run, err := st.CreateRun(ctx, kind, source)
	if err != nil {
		return nil, eris.Wrapf(err, "start %s run", kind)
	}
	zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("kind", string(kind)), zap.String("source", source))
	return &tracker{st: st, run: run, start: time.Now()}, nil
}

// ID returns the run ID.
func (t *tracker) ID() string {
	return t.run.ID
}

// finish marks the run complete, or failed when runErr is set. runErr is
// returned unchanged so callers can `return t.finish(ctx, stats, err)`.
func (t *tracker) finish(ctx context.Context, stats *model.RunStats, runErr error) error {
	log := zap.L().With(zap.String("run_id", t.run.ID))
	if runErr != nil {
		if err := t.st.FailRun(ctx, t.run.ID, runErr); err != nil {
			log.Error("record run failure", zap.Error(err))
		}
		log.Error("run failed", zap.Error(runErr))
		return runErr
	}

	if stats == nil {
		stats = &model.RunStats{}
	}
	stats.DurationMs = time.Since(t.start).Milliseconds()
	if err := t.st.CompleteRun(ctx, t.run.ID, stats); err != nil {
		return eris.Wrap(err, "complete run")
	}
	log.Info("run complete",
		zap.Int("items", stats.Items),
		zap.Int("rows", stats.Rows),
		zap.Int("failed", stats.Failed),
		zap.Int64("duration_ms", stats.DurationMs),
	)
	return nil
}

// drain collects a streamed table into memory.
func drain(tbl *fetcher.Table) ([][]string, error) {
	var rows [][]string
	for rec := range tbl.Rows {
		rows = append(rows, rec)
	}
	for err := range tbl.Errs {
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}
