package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"transport_el/internal/pkg/pkglog"
)

// Scheduler runs a DAG on its cron schedule. A tick that fires while the
// previous run is still going is skipped, and missed ticks are never caught
// up.
type Scheduler struct {
	dag  *DAG
	cron *cron.Cron
	id   cron.EntryID

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler parses the DAG schedule. opts are passed to cron.New, e.g.
// cron.WithSeconds for a six-field schedule.
func NewScheduler(dag *DAG, opts ...cron.Option) (*Scheduler, error) {
	if err := dag.Validate(); err != nil {
		return nil, err
	}

	logger := cronLogger{}
	opts = append([]cron.Option{
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	}, opts...)

	s := &Scheduler{dag: dag, cron: cron.New(opts...)}

	id, err := s.cron.AddFunc(dag.Schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("dag %s: invalid schedule %q: %w", dag.Name, dag.Schedule, err)
	}
	s.id = id

	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// an in-flight run to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	slog.InfoContext(ctx, "scheduler started",
		"dag", s.dag.Name,
		"schedule", s.dag.Schedule,
		"next_run", s.cron.Entry(s.id).Next,
	)

	<-ctx.Done()

	slog.InfoContext(ctx, "stopping scheduler", "dag", s.dag.Name)
	<-s.cron.Stop().Done()
	slog.InfoContext(ctx, "scheduler stopped", "dag", s.dag.Name)

	return nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}

	ctx = pkglog.SetRunID(ctx, uuid.NewString())
	if err := s.dag.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled run failed", "dag", s.dag.Name, "error", err)
		return
	}
	slog.InfoContext(ctx, "scheduled run succeeded", "dag", s.dag.Name, "next_run", s.cron.Entry(s.id).Next)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
