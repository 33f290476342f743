package watcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// PypiConfig configures a pypi watcher
type PypiConfig struct {
	BaseConfig     `yaml:",inline"`
	Package        string `yaml:"package" validate:"required"`
	Version        string `yaml:"version" validate:"required"`
	APIURL         string `yaml:"api_url" validate:"required,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
}

// Name returns the friendly name, defaulting to the package
func (c PypiConfig) Name() string {
	return nameOr(c.FriendlyName, c.Package)
}

func (c PypiConfig) CurrentID() string { return c.Version }

func (c PypiConfig) String() string {
	return fmt.Sprintf("%s:%s", c.Package, c.Version)
}

// PypiType watches the releases of a PyPI package
type PypiType struct{}

func (PypiType) Name() string { return "pypi" }

func (t PypiType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := PypiConfig{
		BaseConfig:     BaseConfig{Type: t.Name()},
		APIURL:         pc.Common.Pypi.APIURL,
		TimeoutSeconds: pc.Common.Pypi.TimeoutSeconds,
	}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t PypiType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[PypiConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	filter, err := typed.filter()
	if err != nil {
		return nil, err
	}

	logger = watcherLogger(logger, typed)
	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(config.Seconds(typed.TimeoutSeconds)).
		Build()
	if err != nil {
		return nil, err
	}
	return &PypiWatcher{cfg: typed, filter: filter, client: client, logger: logger}, nil
}

// PypiWatcher dates each version with its earliest file upload. The releases map carries no
// recency order, so versions are sorted by date.
type PypiWatcher struct {
	cfg    PypiConfig
	filter *Filter
	client *httpclient.HTTPClient
	logger zerolog.Logger
}

// Config returns the watcher configuration
func (w *PypiWatcher) Config() Config { return w.cfg }

// Watch fetches the package metadata and compares its versions with the current one
func (w *PypiWatcher) Watch(ctx context.Context) (models.WatchResult, error) {
	w.logger.Debug().Msg("Watching PyPI package")
	versions, err := w.fetchVersions(ctx)
	if err != nil {
		return models.WatchResult{}, err
	}

	return evaluation[models.Release]{
		cfg:    w.cfg,
		filter: w.filter,
		logger: w.logger,
		id:     func(r models.Release) string { return r.Name },
		resolve: func(_ context.Context, r models.Release) (models.Release, error) {
			return r, nil
		},
		sortByDate: true,
	}.run(ctx, versions)
}

// fetchVersions returns every version that has at least one uploaded file, in the order served.
func (w *PypiWatcher) fetchVersions(ctx context.Context) ([]models.Release, error) {
	u := fmt.Sprintf("%s/%s/json", strings.TrimRight(w.cfg.APIURL, "/"), url.PathEscape(w.cfg.Package))
	body, _, err := getJSON(ctx, w.client, u)
	if err != nil {
		return nil, err
	}

	releases := body.Get("releases")
	if !releases.IsObject() {
		return nil, models.NewWatchError("field 'releases' missing from response of %s", u)
	}

	var versions []models.Release
	var parseErr error
	releases.ForEach(func(key, files gjson.Result) bool {
		version := key.String()
		var earliest time.Time
		for _, file := range files.Array() {
			raw := file.Get("upload_time_iso_8601").String()
			if raw == "" {
				raw = file.Get("upload_time").String()
			}
			if raw == "" {
				parseErr = models.NewWatchError("no upload time for a file of version %s in %s", version, u)
				return false
			}
			uploaded, err := parseTimestamp(raw)
			if err != nil {
				parseErr = err
				return false
			}
			if earliest.IsZero() || uploaded.Before(earliest) {
				earliest = uploaded
			}
		}
		if earliest.IsZero() {
			w.logger.Debug().Str("version", version).Msg("Skipping version without files")
			return true
		}
		versions = append(versions, models.NewRelease(version, earliest))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return versions, nil
}
