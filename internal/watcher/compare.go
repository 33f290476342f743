package watcher

import (
	"context"
	"sort"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

// Compare scans releases ordered most recent first. Releases are missed until the one named
// currentID is found; it becomes the current release and the older ones are ignored.
// When currentID never shows up every release is missed.
func Compare(cfg models.WatcherConfig, releases []models.Release) models.WatchResult {
	missed := make([]models.Release, 0, len(releases))
	for i := range releases {
		if releases[i].Name == cfg.CurrentID() {
			current := releases[i]
			return models.NewWatchResult(cfg, &current, missed)
		}
		missed = append(missed, releases[i])
	}
	return models.NewWatchResult(cfg, nil, missed)
}

// SortByDateDesc orders releases most recent first. Releases with equal dates keep their order.
func SortByDateDesc(releases []models.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].ReleaseDate.After(releases[j].ReleaseDate)
	})
}

// evaluation describes how one watcher turns raw upstream items into a WatchResult.
type evaluation[T any] struct {
	cfg    Config
	filter *Filter
	logger zerolog.Logger
	// id returns the identifier the filter and the comparison work on.
	id func(T) string
	// resolve reduces an item to a Release, possibly with an extra upstream call.
	resolve func(ctx context.Context, item T) (models.Release, error)
	// sortByDate is set for upstreams whose listing order says nothing about recency.
	sortByDate bool
}

// run filters items, reduces them to releases and compares them with the current identifier.
// Upstream order is trusted when sortByDate is unset, so items are resolved lazily and
// resolution stops at the current release.
func (e evaluation[T]) run(ctx context.Context, items []T) (models.WatchResult, error) {
	items = Apply(e.filter, items, e.id)
	currentID := e.cfg.CurrentID()

	var result models.WatchResult
	if e.sortByDate {
		releases := make([]models.Release, 0, len(items))
		for _, item := range items {
			release, err := e.resolve(ctx, item)
			if err != nil {
				return models.WatchResult{}, err
			}
			releases = append(releases, release)
		}
		SortByDateDesc(releases)
		result = Compare(e.cfg, releases)
	} else {
		releases := make([]models.Release, 0, len(items))
		for _, item := range items {
			release, err := e.resolve(ctx, item)
			if err != nil {
				return models.WatchResult{}, err
			}
			releases = append(releases, release)
			if release.Name == currentID {
				break
			}
		}
		result = Compare(e.cfg, releases)
	}

	for _, release := range result.MissedReleases {
		e.logger.Debug().Str("release", release.String()).Msg("Missed release")
	}
	if result.CurrentRelease == nil {
		e.logger.Warn().Str("current", currentID).Msg("Current release not found upstream")
	} else {
		e.logger.Debug().Str("current", result.CurrentRelease.String()).Msg("Current release found")
	}
	return result, nil
}
