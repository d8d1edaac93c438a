// Package store persists run bookkeeping: runs, per-item failures and
// reconciliation decisions.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/config"
	"github.com/sells-group/hospital-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// limit returns the effective page size.
func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for run bookkeeping.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Failures
	AddFailures(ctx context.Context, failures []model.Failure) error
	ListFailures(ctx context.Context, runID string) ([]model.Failure, error)

	// Decisions
	SaveDecisions(ctx context.Context, decisions []model.Decision) error
	ListDecisions(ctx context.Context, runID string) ([]model.Decision, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Driver and applies migrations.
// The "none" driver returns a store that records nothing.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "none":
		return Nop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	zap.L().Debug("store opened", zap.String("driver", cfg.Driver))
	return s, nil
}

// Nop is a Store that keeps nothing. Runs it creates get a fresh ID so callers
// can log them, but lookups always miss.
type Nop struct{}

func (Nop) CreateRun(_ context.Context, kind model.RunKind, source string) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{ID: newID(), Kind: kind, Source: source, Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (Nop) CompleteRun(context.Context, string, *model.RunStats) error {
	return nil
}

func (Nop) FailRun(context.Context, string, error) error {
	return nil
}

func (Nop) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
}

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) {
	return nil, nil
}

func (Nop) AddFailures(context.Context, []model.Failure) error {
	return nil
}

func (Nop) ListFailures(context.Context, string) ([]model.Failure, error) {
	return nil, nil
}

func (Nop) SaveDecisions(context.Context, []model.Decision) error {
	return nil
}

func (Nop) ListDecisions(context.Context, string) ([]model.Decision, error) {
	return nil, nil
}

func (Nop) Migrate(context.Context) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

// errorText flattens a run error for storage.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newID() string {
	return uuid.New().String()
}
