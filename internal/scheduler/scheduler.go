package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	cycleTimeout          = 15 * time.Minute
)

// CycleFunc runs one aggregation cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler runs cycles on a cron spec. A tick that fires while the previous
// cycle is still running is skipped, so at most one cycle touches the store.
type Scheduler struct {
	ctx   context.Context
	cron  *cron.Cron
	spec  string
	cycle CycleFunc
	mu    sync.Mutex
	log   *slog.Logger
}

func New(ctx context.Context, spec string, cycle CycleFunc, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:   ctx,
		cron:  c,
		spec:  spec,
		cycle: cycle,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runCycle); err != nil {
		return fmt.Errorf("add cron func (spec = %s): %w", s.spec, err)
	}

	s.cron.Start()

	return nil
}

// Stop prevents new cycles and waits for a running one to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow runs a cycle immediately unless one is already running.
func (s *Scheduler) RunNow() bool {
	return s.runCycleLocked()
}

func (s *Scheduler) runCycle() {
	s.runCycleLocked()
}

func (s *Scheduler) runCycleLocked() bool {
	if !s.mu.TryLock() {
		s.log.WarnContext(s.ctx, "Previous aggregation cycle is still running so tick is skipped",
			"spec", s.spec)

		return false
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, cycleTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return false
	default:
	}

	start := time.Now()

	if err := s.cycle(ctx); err != nil {
		s.log.ErrorContext(ctx, "Failed to run aggregation cycle",
			"error", err,
			"spec", s.spec,
			"elapsedMs", time.Since(start).Milliseconds())
	}

	return true
}
