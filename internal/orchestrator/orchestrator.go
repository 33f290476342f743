// Package orchestrator wires sources, watchers, the runner and outputs into run cycles.
package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/aleister1102/releasewatcher/internal/output"
	"github.com/aleister1102/releasewatcher/internal/runner"
	"github.com/aleister1102/releasewatcher/internal/source"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSourceRegistry replaces the built-in source kinds
func WithSourceRegistry(r *source.Registry) Option {
	return func(o *Orchestrator) { o.sourceTypes = r }
}

// WithWatcherRegistry replaces the built-in watcher kinds
func WithWatcherRegistry(r *watcher.Registry) Option {
	return func(o *Orchestrator) { o.watcherTypes = r }
}

// WithOutputRegistry replaces the built-in output kinds
func WithOutputRegistry(r *output.Registry) Option {
	return func(o *Orchestrator) { o.outputTypes = r }
}

// WithRunIDGenerator replaces the uuid run identifiers
func WithRunIDGenerator(next func() string) Option {
	return func(o *Orchestrator) { o.newRunID = next }
}

type configuredOutput struct {
	cfg    output.Config
	output output.Output
}

// CycleReport summarizes one run cycle
type CycleReport struct {
	RunID         string
	Watchers      int
	Results       []models.WatchResult
	FailedOutputs int
	Duration      time.Duration
}

// Orchestrator holds everything built at startup and runs cycles over it
type Orchestrator struct {
	cfg          *config.GlobalConfig
	logger       zerolog.Logger
	sourceTypes  *source.Registry
	watcherTypes *watcher.Registry
	outputTypes  *output.Registry
	newRunID     func() string

	runner   *runner.Runner
	watchers []watcher.Watcher
	outputs  []configuredOutput
}

// New parses the sources and outputs of cfg, reads every watcher configuration and
// instantiates the watchers. Invalid entries are logged and skipped; a ConfigurationError
// is returned when no usable source or no usable output remains.
func New(ctx context.Context, cfg *config.GlobalConfig, logger zerolog.Logger, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:          cfg,
		logger:       logger.With().Str("component", "Orchestrator").Logger(),
		sourceTypes:  source.NewDefaultRegistry(),
		watcherTypes: watcher.NewDefaultRegistry(),
		outputTypes:  output.NewDefaultRegistry(),
		newRunID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.runner = runner.NewRunner(cfg.Core.Threads, logger)

	sources := o.buildSources(logger)
	if len(sources) == 0 {
		return nil, common.NewConfigurationError("sources", "", "no usable source configured")
	}

	o.outputs = o.buildOutputs(logger)
	if len(o.outputs) == 0 {
		return nil, common.NewConfigurationError("outputs", "", "no usable output configured")
	}

	watchers, err := o.buildWatchers(ctx, sources, logger)
	if err != nil {
		_ = o.Close()
		return nil, err
	}
	o.watchers = watchers

	o.logger.Info().
		Int("sources", len(sources)).
		Int("watchers", len(o.watchers)).
		Int("outputs", len(o.outputs)).
		Int("threads", o.runner.Parallelism()).
		Msg("Orchestrator ready")
	return o, nil
}

// Watchers returns the instantiated watchers
func (o *Orchestrator) Watchers() []watcher.Watcher {
	return o.watchers
}

// RunCycle runs every watcher once and hands the results to every output.
// Watcher and output failures are logged and never fail the cycle; only cancellation does.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	report := &CycleReport{RunID: o.newRunID(), Watchers: len(o.watchers)}
	logger := o.logger.With().Str("run_id", report.RunID).Logger()

	logger.Info().Int("watchers", report.Watchers).Msg("Starting run cycle")
	report.Results = o.runner.Run(ctx, o.watchers)

	if err := ctx.Err(); err != nil {
		logger.Warn().Msg("Run cycle cancelled, results are not emitted")
		return report, err
	}

	emitCtx := output.WithRunID(ctx, report.RunID)
	for _, configured := range o.outputs {
		if err := configured.output.Emit(emitCtx, report.Results); err != nil {
			report.FailedOutputs++
			logger.Error().Err(err).Str("output", configured.cfg.String()).Msg("Output failed to emit results")
		}
	}

	report.Duration = time.Since(start)
	logger.Info().
		Int("results", len(report.Results)).
		Int("failed_outputs", report.FailedOutputs).
		Dur("duration", report.Duration).
		Msg("Run cycle completed")
	return report, nil
}

// Close releases the outputs holding resources
func (o *Orchestrator) Close() error {
	var collector common.ErrorCollector
	for _, configured := range o.outputs {
		closer, ok := configured.output.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			o.logger.Error().Err(err).Str("output", configured.cfg.String()).Msg("Failed to close output")
			collector.AddWithContext(err, configured.cfg.String())
		}
	}
	return collector.Error()
}

func (o *Orchestrator) buildSources(logger zerolog.Logger) []source.Source {
	pc := o.cfg.ParseContext()
	loader := source.NewLoader(o.watcherTypes, pc, logger)

	sources := make([]source.Source, 0, len(o.cfg.Sources))
	for i, raw := range o.cfg.Sources {
		src, err := o.buildSource(pc, raw, loader)
		if err != nil {
			o.logger.Error().Err(common.NewEntryError("sources", i, raw.Line(), raw.Type, err)).Msg("Skipping source entry")
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

func (o *Orchestrator) buildSource(pc config.ParseContext, raw config.RawEntry, loader *source.Loader) (source.Source, error) {
	sourceType, err := o.sourceTypes.Lookup(raw.Type)
	if err != nil {
		return nil, err
	}
	cfg, err := sourceType.ParseConfig(pc, raw)
	if err != nil {
		return nil, err
	}
	return sourceType.Create(cfg, loader)
}

func (o *Orchestrator) buildOutputs(logger zerolog.Logger) []configuredOutput {
	pc := o.cfg.ParseContext()

	outputs := make([]configuredOutput, 0, len(o.cfg.Outputs))
	for i, raw := range o.cfg.Outputs {
		configured, err := o.buildOutput(pc, raw, logger)
		if err != nil {
			o.logger.Error().Err(common.NewEntryError("outputs", i, raw.Line(), raw.Type, err)).Msg("Skipping output entry")
			continue
		}
		outputs = append(outputs, configured)
	}
	return outputs
}

func (o *Orchestrator) buildOutput(pc config.ParseContext, raw config.RawEntry, logger zerolog.Logger) (configuredOutput, error) {
	outputType, err := o.outputTypes.Lookup(raw.Type)
	if err != nil {
		return configuredOutput{}, err
	}
	cfg, err := outputType.ParseConfig(pc, raw)
	if err != nil {
		return configuredOutput{}, err
	}
	out, err := outputType.Create(cfg, logger)
	if err != nil {
		return configuredOutput{}, common.WrapErrorf(err, "could not create %s", cfg)
	}
	return configuredOutput{cfg: cfg, output: out}, nil
}

func (o *Orchestrator) buildWatchers(ctx context.Context, sources []source.Source, logger zerolog.Logger) ([]watcher.Watcher, error) {
	var watchers []watcher.Watcher
	for _, src := range sources {
		configs, err := src.ReadWatcherConfigs(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.Error().Err(err).Msg("Skipping source that could not be read")
			continue
		}

		for _, cfg := range configs {
			watcherType, err := o.watcherTypes.Lookup(cfg.TypeName())
			if err != nil {
				o.logger.Error().Err(err).Str("watcher", cfg.String()).Msg("Skipping watcher")
				continue
			}
			w, err := watcherType.Create(cfg, logger)
			if err != nil {
				o.logger.Error().Err(err).Str("watcher", cfg.String()).Msg("Skipping watcher that could not be created")
				continue
			}
			watchers = append(watchers, w)
		}
	}

	if len(watchers) == 0 {
		o.logger.Warn().Msg("No watcher configured, run cycles will produce empty results")
	}
	return watchers, nil
}
