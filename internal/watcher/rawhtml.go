package watcher

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

// BasicAuthConfig holds credentials sent to a protected page
type BasicAuthConfig struct {
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
}

// RawHTMLConfig configures a raw_html watcher. Empty id/date selectors address the item element
// itself and empty attributes mean the element text.
type RawHTMLConfig struct {
	BaseConfig        `yaml:",inline"`
	PageURL           string           `yaml:"page_url" validate:"required,url"`
	CurrentItemID     string           `yaml:"current_id" validate:"required"`
	ContainerSelector string           `yaml:"container_selector,omitempty"`
	ItemSelector      string           `yaml:"item_selector" validate:"required"`
	IDSelector        string           `yaml:"id_selector,omitempty"`
	IDAttribute       string           `yaml:"id_attribute,omitempty"`
	DateSelector      string           `yaml:"date_selector,omitempty"`
	DateAttribute     string           `yaml:"date_attribute,omitempty"`
	DateFormat        string           `yaml:"date_format,omitempty"`
	Reverse           bool             `yaml:"reverse,omitempty"`
	BasicAuth         *BasicAuthConfig `yaml:"basic_auth,omitempty"`
	TimeoutSeconds    int              `yaml:"timeout_seconds" validate:"min=1"`
}

// Name returns the friendly name, defaulting to the page URL
func (c RawHTMLConfig) Name() string {
	return nameOr(c.FriendlyName, c.PageURL)
}

func (c RawHTMLConfig) CurrentID() string { return c.CurrentItemID }

func (c RawHTMLConfig) String() string { return c.PageURL }

// RawHTMLType watches items listed on an arbitrary web page
type RawHTMLType struct{}

func (RawHTMLType) Name() string { return "raw_html" }

func (t RawHTMLType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := RawHTMLConfig{
		BaseConfig:     BaseConfig{Type: t.Name()},
		TimeoutSeconds: pc.Common.RawHTML.TimeoutSeconds,
	}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t RawHTMLType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[RawHTMLConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	filter, err := typed.filter()
	if err != nil {
		return nil, err
	}

	logger = watcherLogger(logger, typed)
	builder := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(config.Seconds(typed.TimeoutSeconds))
	if typed.BasicAuth != nil {
		builder.WithBasicAuth(typed.BasicAuth.Username, typed.BasicAuth.Password)
	}
	client, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &RawHTMLWatcher{cfg: typed, filter: filter, client: client, logger: logger}, nil
}

// htmlItem is one selected page element with its raw identifier and date text
type htmlItem struct {
	ID   string
	Date string
}

// RawHTMLWatcher trusts page order: items are listed most recent first, or oldest first with reverse.
type RawHTMLWatcher struct {
	cfg    RawHTMLConfig
	filter *Filter
	client *httpclient.HTTPClient
	logger zerolog.Logger
}

// Config returns the watcher configuration
func (w *RawHTMLWatcher) Config() Config { return w.cfg }

// Watch selects the page items and compares them with the current item
func (w *RawHTMLWatcher) Watch(ctx context.Context) (models.WatchResult, error) {
	w.logger.Debug().Msg("Watching raw html page")
	items, err := w.fetchItems(ctx)
	if err != nil {
		return models.WatchResult{}, err
	}

	return evaluation[htmlItem]{
		cfg:     w.cfg,
		filter:  w.filter,
		logger:  w.logger,
		id:      func(item htmlItem) string { return item.ID },
		resolve: w.resolveItem,
	}.run(ctx, items)
}

func (w *RawHTMLWatcher) fetchItems(ctx context.Context) ([]htmlItem, error) {
	resp, err := get(ctx, w.client, w.cfg.PageURL, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, models.WrapWatchError(err, "failed to parse page %s", w.cfg.PageURL)
	}

	container := doc.Selection
	if w.cfg.ContainerSelector != "" {
		container = doc.Find(w.cfg.ContainerSelector).First()
		if container.Length() == 0 {
			return nil, models.NewWatchError("container '%s' not found in %s", w.cfg.ContainerSelector, w.cfg.PageURL)
		}
	}

	elements := container.Find(w.cfg.ItemSelector)
	if elements.Length() == 0 {
		return nil, models.NewWatchError("no item matches '%s' in %s", w.cfg.ItemSelector, w.cfg.PageURL)
	}

	items := make([]htmlItem, 0, elements.Length())
	var extractErr error
	elements.EachWithBreak(func(_ int, element *goquery.Selection) bool {
		var item htmlItem
		if item.ID, extractErr = extractValue(element, w.cfg.IDSelector, w.cfg.IDAttribute); extractErr != nil {
			return false
		}
		if item.Date, extractErr = extractValue(element, w.cfg.DateSelector, w.cfg.DateAttribute); extractErr != nil {
			return false
		}
		items = append(items, item)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	if w.cfg.Reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

func (w *RawHTMLWatcher) resolveItem(_ context.Context, item htmlItem) (models.Release, error) {
	var (
		date time.Time
		err  error
	)
	if w.cfg.DateFormat != "" {
		date, err = time.ParseInLocation(w.cfg.DateFormat, item.Date, time.UTC)
		if err != nil {
			return models.Release{}, models.WrapWatchError(err, "date '%s' of item '%s' does not match format '%s'", item.Date, item.ID, w.cfg.DateFormat)
		}
	} else if date, err = parseTimestamp(item.Date); err != nil {
		return models.Release{}, err
	}
	return models.NewRelease(item.ID, date), nil
}

// extractValue reads an attribute, or the trimmed text, of the first element matching selector
// within item. An empty selector addresses item itself.
func extractValue(item *goquery.Selection, selector, attribute string) (string, error) {
	element := item
	if selector != "" {
		element = item.Find(selector).First()
		if element.Length() == 0 {
			return "", models.NewWatchError("selector '%s' matches nothing in item", selector)
		}
	}

	if attribute != "" {
		value, ok := element.Attr(attribute)
		if !ok {
			return "", models.NewWatchError("attribute '%s' missing on element '%s'", attribute, goquery.NodeName(element))
		}
		return strings.TrimSpace(value), nil
	}
	return strings.TrimSpace(element.Text()), nil
}
