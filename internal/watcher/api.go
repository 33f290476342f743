package watcher

import (
	"context"

	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

// apiItem is an upstream commit, release or tag reduced to what the comparison needs.
type apiItem struct {
	ID        string
	Date      string
	CommitURL string
}

func (i apiItem) id() string { return i.ID }

// fetchAPIItems lists a repository resource and extracts the identifier and date fields.
// commit.url is kept when present.
func fetchAPIItems(ctx context.Context, client *httpclient.HTTPClient, u, idPath, datePath string) ([]apiItem, error) {
	body, _, err := getJSON(ctx, client, u)
	if err != nil {
		return nil, err
	}
	elements, err := requireArray(body, u)
	if err != nil {
		return nil, err
	}

	items := make([]apiItem, 0, len(elements))
	for _, element := range elements {
		item := apiItem{}
		if item.ID, err = requireString(element, idPath, u); err != nil {
			return nil, err
		}
		if datePath != "" {
			if item.Date, err = requireString(element, datePath, u); err != nil {
				return nil, err
			}
		}
		item.CommitURL = element.Get("commit.url").String()
		items = append(items, item)
	}
	return items, nil
}

func datedRelease(_ context.Context, _ *APIWatcher, item apiItem) (models.Release, error) {
	date, err := parseTimestamp(item.Date)
	if err != nil {
		return models.Release{}, err
	}
	return models.NewRelease(item.ID, date), nil
}

// APIWatcher runs one watcher against a forge REST API (GitHub, GitLab). Those APIs list
// commits, releases and tags most recent first, so upstream order is kept.
type APIWatcher struct {
	cfg     Config
	filter  *Filter
	client  *httpclient.HTTPClient
	logger  zerolog.Logger
	fetch   func(ctx context.Context, w *APIWatcher) ([]apiItem, error)
	resolve func(ctx context.Context, w *APIWatcher, item apiItem) (models.Release, error)
}

type apiClientFactory func(logger zerolog.Logger) (*httpclient.HTTPClient, error)

func newAPIWatcher(
	cfg Config,
	base BaseConfig,
	logger zerolog.Logger,
	newClient apiClientFactory,
	fetch func(ctx context.Context, w *APIWatcher) ([]apiItem, error),
	resolve func(ctx context.Context, w *APIWatcher, item apiItem) (models.Release, error),
) (*APIWatcher, error) {
	filter, err := base.filter()
	if err != nil {
		return nil, err
	}
	logger = watcherLogger(logger, cfg)
	client, err := newClient(logger)
	if err != nil {
		return nil, err
	}
	return &APIWatcher{
		cfg:     cfg,
		filter:  filter,
		client:  client,
		logger:  logger,
		fetch:   fetch,
		resolve: resolve,
	}, nil
}

// Config returns the watcher configuration
func (w *APIWatcher) Config() Config { return w.cfg }

// Watch lists the upstream items and compares them with the current identifier
func (w *APIWatcher) Watch(ctx context.Context) (models.WatchResult, error) {
	w.logger.Debug().Msg("Watching repository")
	items, err := w.fetch(ctx, w)
	if err != nil {
		return models.WatchResult{}, err
	}

	return evaluation[apiItem]{
		cfg:    w.cfg,
		filter: w.filter,
		logger: w.logger,
		id:     apiItem.id,
		resolve: func(ctx context.Context, item apiItem) (models.Release, error) {
			return w.resolve(ctx, w, item)
		},
	}.run(ctx, items)
}
