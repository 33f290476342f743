package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	name string
}

func (c fakeConfig) TypeName() string  { return "fake" }
func (c fakeConfig) Name() string      { return c.name }
func (c fakeConfig) CurrentID() string { return "v1" }
func (c fakeConfig) String() string    { return c.name }

type fakeWatcher struct {
	cfg   fakeConfig
	watch func(ctx context.Context) (models.WatchResult, error)
}

func (w *fakeWatcher) Config() watcher.Config { return w.cfg }

func (w *fakeWatcher) Watch(ctx context.Context) (models.WatchResult, error) {
	return w.watch(ctx)
}

func succeeding(name string) *fakeWatcher {
	cfg := fakeConfig{name: name}
	return &fakeWatcher{cfg: cfg, watch: func(context.Context) (models.WatchResult, error) {
		current := models.NewRelease("v1", time.Now())
		return models.NewWatchResult(cfg, &current, nil), nil
	}}
}

func failing(name string) *fakeWatcher {
	return &fakeWatcher{cfg: fakeConfig{name: name}, watch: func(context.Context) (models.WatchResult, error) {
		return models.WatchResult{}, models.NewWatchError("upstream down")
	}}
}

func panicking(name string) *fakeWatcher {
	return &fakeWatcher{cfg: fakeConfig{name: name}, watch: func(context.Context) (models.WatchResult, error) {
		panic("boom")
	}}
}

func resultNames(results []models.WatchResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name())
	}
	return names
}

func TestRunner_IsolatesFailures(t *testing.T) {
	watchers := []watcher.Watcher{
		succeeding("a"),
		failing("b"),
		succeeding("c"),
		panicking("d"),
		&fakeWatcher{cfg: fakeConfig{name: "e"}, watch: func(context.Context) (models.WatchResult, error) {
			return models.WatchResult{}, &models.RateLimitExceededError{URL: "https://api.example.com", HasReset: true, ResetIn: time.Hour, MaxWait: time.Minute}
		}},
		succeeding("f"),
	}

	results := NewRunner(3, zerolog.Nop()).Run(t.Context(), watchers)

	assert.ElementsMatch(t, []string{"a", "c", "f"}, resultNames(results))
}

func TestRunner_AllFailing(t *testing.T) {
	watchers := make([]watcher.Watcher, 0, 10)
	for i := 0; i < 10; i++ {
		watchers = append(watchers, failing(fmt.Sprint(i)))
	}

	results := NewRunner(4, zerolog.Nop()).Run(t.Context(), watchers)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRunner_BoundsParallelism(t *testing.T) {
	const parallelism = 3
	var running, peak int32

	watchers := make([]watcher.Watcher, 0, 12)
	for i := 0; i < 12; i++ {
		cfg := fakeConfig{name: fmt.Sprint(i)}
		watchers = append(watchers, &fakeWatcher{cfg: cfg, watch: func(context.Context) (models.WatchResult, error) {
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return models.NewWatchResult(cfg, nil, nil), nil
		}})
	}

	results := NewRunner(parallelism, zerolog.Nop()).Run(t.Context(), watchers)

	assert.Len(t, results, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(parallelism))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "watchers should run concurrently")
}

func TestRunner_SequentialWithParallelismOne(t *testing.T) {
	var mu sync.Mutex
	var order []string

	watchers := make([]watcher.Watcher, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		cfg := fakeConfig{name: name}
		watchers = append(watchers, &fakeWatcher{cfg: cfg, watch: func(context.Context) (models.WatchResult, error) {
			mu.Lock()
			order = append(order, cfg.name)
			mu.Unlock()
			return models.NewWatchResult(cfg, nil, nil), nil
		}})
	}

	results := NewRunner(1, zerolog.Nop()).Run(t.Context(), watchers)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
	assert.Equal(t, order, resultNames(results))
}

func TestRunner_CancelledContextStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	w := &fakeWatcher{cfg: fakeConfig{name: "a"}, watch: func(context.Context) (models.WatchResult, error) {
		atomic.AddInt32(&calls, 1)
		return models.WatchResult{}, nil
	}}

	results := NewRunner(2, zerolog.Nop()).Run(ctx, []watcher.Watcher{w})

	assert.Empty(t, results)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRunner_WatchReportsPanicAsError(t *testing.T) {
	r := NewRunner(1, zerolog.Nop())

	_, err := r.watch(t.Context(), panicking("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = r.watch(t.Context(), failing("y"))
	assert.True(t, errors.Is(err, models.ErrWatch))
}

func TestNewRunner_DefaultParallelism(t *testing.T) {
	assert.Equal(t, DefaultParallelism, NewRunner(0, zerolog.Nop()).Parallelism())
	assert.Equal(t, 8, NewRunner(8, zerolog.Nop()).Parallelism())
}
