package world

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
)

// Scheduler ticks a World on a fixed period and reports each result.
type Scheduler struct {
	world  *World
	period time.Duration
	notify func(Snapshot)
}

func NewScheduler(w *World, period time.Duration, notify func(Snapshot)) *Scheduler {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if notify == nil {
		notify = func(Snapshot) {}
	}
	return &Scheduler{world: w, period: period, notify: notify}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	logs.Info("tick scheduler started", zap.Duration("period", s.period))
	for {
		select {
		case <-ctx.Done():
			logs.Info("tick scheduler stopped", zap.Uint64("ticks", s.world.TickCount()))
			return

		case <-ticker.C:
			start := time.Now()
			s.world.Tick()
			s.notify(s.world.Snapshot())

			if took := time.Since(start); took > s.period {
				logs.Warn("tick overran its period", zap.Duration("took", took), zap.Duration("period", s.period))
			}
		}
	}
}
