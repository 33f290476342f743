// Package runner executes watchers concurrently with bounded parallelism.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is used when a non-positive parallelism is configured
const DefaultParallelism = 2

// Runner executes watchers and collects the results of those that succeed.
// A failing or panicking watcher is logged and contributes no result.
type Runner struct {
	parallelism int
	logger      zerolog.Logger
}

// NewRunner creates a runner executing at most parallelism watchers at a time
func NewRunner(parallelism int, logger zerolog.Logger) *Runner {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Runner{
		parallelism: parallelism,
		logger:      logger.With().Str("component", "Runner").Logger(),
	}
}

// Parallelism returns the maximum number of watchers running at once
func (r *Runner) Parallelism() int {
	return r.parallelism
}

// Run executes every watcher and returns the successful results. The order of the results
// does not follow the order of the watchers. Cancelling ctx stops admitting new watchers.
func (r *Runner) Run(ctx context.Context, watchers []watcher.Watcher) []models.WatchResult {
	var (
		mu      sync.Mutex
		results = make([]models.WatchResult, 0, len(watchers))
		failed  int
	)

	start := time.Now()
	group := new(errgroup.Group)
	group.SetLimit(r.parallelism)

	for _, w := range watchers {
		if ctx.Err() != nil {
			r.logger.Warn().Msg("Run cancelled, remaining watchers are not started")
			break
		}

		group.Go(func() error {
			result, err := r.watch(ctx, w)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return nil
			}
			results = append(results, result)
			return nil
		})
	}
	_ = group.Wait()

	r.logger.Info().
		Int("watchers", len(watchers)).
		Int("succeeded", len(results)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Watchers run completed")
	return results
}

// watch runs one watcher inside an error boundary
func (r *Runner) watch(ctx context.Context, w watcher.Watcher) (result models.WatchResult, err error) {
	cfg := w.Config()
	logger := r.logger.With().Str("watcher", cfg.String()).Str("type", cfg.TypeName()).Logger()

	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panicked: %v", recovered)
			logger.Error().Err(err).Str("stack", string(debug.Stack())).Msg("Watcher crashed")
		}
	}()

	logger.Info().Msg("Running watcher")
	result, err = w.Watch(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error().Err(err).Int64("duration_ms", elapsed.Milliseconds()).Msg("Error while running watcher")
		return models.WatchResult{}, err
	}

	logger.Info().
		Int64("duration_ms", elapsed.Milliseconds()).
		Int("missed", result.MissedCount()).
		Msg("Watcher finished")
	return result, nil
}
