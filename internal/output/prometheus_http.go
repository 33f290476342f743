package output

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aleister1102/releasewatcher/internal/common"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultMetricsPort is the port of prometheus_http outputs without an explicit one
	DefaultMetricsPort = 8080

	shutdownTimeout = 5 * time.Second
)

// PrometheusHTTPConfig configures a prometheus_http output. Port 0 picks a free port.
type PrometheusHTTPConfig struct {
	Type    string `yaml:"type" validate:"required"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port" validate:"min=0,max=65535"`
}

// TypeName returns the registry name of the output kind
func (c PrometheusHTTPConfig) TypeName() string { return c.Type }

func (c PrometheusHTTPConfig) String() string { return c.Type + ":" + c.listenAddress() }

func (c PrometheusHTTPConfig) listenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// PrometheusHTTPType builds prometheus_http outputs
type PrometheusHTTPType struct{}

// Name returns the registry name of the kind
func (PrometheusHTTPType) Name() string { return "prometheus_http" }

// ParseConfig decodes a prometheus_http entry
func (t PrometheusHTTPType) ParseConfig(_ config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := PrometheusHTTPConfig{Port: DefaultMetricsPort}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Create builds a PrometheusHTTPOutput. The server is started by the first emit.
func (t PrometheusHTTPType) Create(cfg Config, logger zerolog.Logger) (Output, error) {
	typed, err := configAs[PrometheusHTTPConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	gauges, err := newReleaseGauges(registry)
	if err != nil {
		return nil, common.WrapError(err, "failed to register release gauges")
	}

	return &PrometheusHTTPOutput{
		cfg:      typed,
		registry: registry,
		gauges:   gauges,
		logger:   outputLogger(logger, "PrometheusHTTPOutput", typed),
		now:      time.Now,
	}, nil
}

// PrometheusHTTPOutput serves the release gauges on /metrics
type PrometheusHTTPOutput struct {
	cfg      PrometheusHTTPConfig
	registry *prometheus.Registry
	gauges   *releaseGauges
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Emit replaces the gauges with the results, starting the server if needed
func (o *PrometheusHTTPOutput) Emit(_ context.Context, results []models.WatchResult) error {
	if err := o.start(); err != nil {
		return err
	}
	o.gauges.set(results, o.now())
	o.logger.Info().Int("results", len(results)).Msg("Metrics updated")
	return nil
}

// Addr returns the address the server listens on, or nil before the first emit
func (o *PrometheusHTTPOutput) Addr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listener == nil {
		return nil
	}
	return o.listener.Addr()
}

// Close stops the server
func (o *PrometheusHTTPOutput) Close() error {
	o.mu.Lock()
	server := o.server
	o.server = nil
	o.listener = nil
	o.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return common.WrapError(err, "failed to stop metrics server")
	}
	o.logger.Info().Msg("Metrics server stopped")
	return nil
}

func (o *PrometheusHTTPOutput) start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.server != nil {
		return nil
	}

	listener, err := net.Listen("tcp", o.cfg.listenAddress())
	if err != nil {
		return common.WrapErrorf(err, "failed to listen on %s", o.cfg.listenAddress())
	}

	server := &http.Server{
		Handler:           o.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	o.server = server
	o.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	o.logger.Info().Str("address", listener.Addr().String()).Msg("Metrics server started")
	return nil
}

func (o *PrometheusHTTPOutput) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
