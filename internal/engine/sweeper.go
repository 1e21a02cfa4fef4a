package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/core"
	"github.com/docuflow/docuflow/pkg/docuflow/domain"
)

// Sweeper periodically scans running executions whose step deadline has
// passed and fails them with a step timeout. One scan serves any number of
// executions, so no per-execution timers are held.
type Sweeper struct {
	engine     *ExecutionEngine
	executions ExecutionStore
	clock      core.Clock
	interval   time.Duration
	batchSize  int
}

func NewSweeper(engine *ExecutionEngine, executions ExecutionStore, clock core.Clock, interval time.Duration, batchSize int) *Sweeper {
	return &Sweeper{engine: engine, executions: executions, clock: clock, interval: interval, batchSize: batchSize}
}

// Start blocks until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Starting timeout sweeper", "interval", s.interval.String(), "batch_size", s.batchSize)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Timeout sweeper stopping due to context cancel")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one scan. A save conflict on an individual execution means a
// caller progressed it between the scan and the write; that execution is
// simply left alone.
func (s *Sweeper) Sweep(ctx context.Context) {
	timedOut, err := s.executions.FindTimedOut(s.clock.Now(), s.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Sweep query failed", "error", err)
		return
	}
	for i := range timedOut {
		exec := &timedOut[i]
		if err := s.engine.ExpireTimedOut(ctx, exec); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				slog.InfoContext(ctx, "Execution progressed during sweep, skipping", "execution_id", exec.ID)
				continue
			}
			slog.ErrorContext(ctx, "Failed to expire execution", "execution_id", exec.ID, "error", err)
		}
	}
}
