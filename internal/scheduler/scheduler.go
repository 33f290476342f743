// Package scheduler runs watch cycles once or repeatedly until cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/orchestrator"
	"github.com/rs/zerolog"
)

// CycleRunner runs one watch cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*orchestrator.CycleReport, error)
}

// Scheduler drives cycles according to the core run mode
type Scheduler struct {
	runMode string
	sleep   time.Duration
	cycles  CycleRunner
	logger  zerolog.Logger

	// wait blocks for d or until ctx is done
	wait func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler for the run mode and sleep duration of core
func NewScheduler(core config.CoreConfig, cycles CycleRunner, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runMode: core.RunMode,
		sleep:   core.SleepDuration(),
		cycles:  cycles,
		logger:  logger.With().Str("component", "Scheduler").Logger(),
		wait:    waitContext,
	}
}

// Start runs one cycle in once mode. In repeat mode it runs cycles separated by the sleep
// duration until ctx is cancelled, which is a normal stop and returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.isRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	switch s.runMode {
	case config.RunModeOnce:
		s.logger.Info().Msg("Running a single cycle")
		_, err := s.cycles.RunCycle(ctx)
		return ignoreCancellation(err)
	case config.RunModeRepeat:
		return s.repeat(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", s.runMode)
	}
}

func (s *Scheduler) repeat(ctx context.Context) error {
	s.logger.Info().Dur("sleep", s.sleep).Msg("Starting repeated cycles")

	for cycle := 1; ; cycle++ {
		report, err := s.cycles.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Int("cycles", cycle).Msg("Context cancelled, stopping scheduler")
				return nil
			}
			return err
		}

		s.logger.Info().
			Int("cycle", cycle).
			Str("run_id", report.RunID).
			Time("next_cycle", time.Now().Add(s.sleep)).
			Msg("Cycle finished, sleeping")

		if err := s.wait(ctx, s.sleep); err != nil {
			s.logger.Info().Int("cycles", cycle).Msg("Context cancelled, stopping scheduler")
			return nil
		}
	}
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func ignoreCancellation(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
