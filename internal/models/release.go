package models

import (
	"fmt"
	"time"
)

// WatcherConfig is the part of a watcher configuration that travels with its results.
type WatcherConfig interface {
	// TypeName is the registry name of the watcher kind (e.g. "github_release").
	TypeName() string
	// Name is the friendly name shown by outputs.
	Name() string
	// CurrentID is the identifier the user declared as currently deployed.
	CurrentID() string
	// String identifies the watcher in logs.
	String() string
}

// Release is a named, dated artifact version as seen upstream.
type Release struct {
	Name        string    `json:"name" yaml:"name"`
	ReleaseDate time.Time `json:"release_date" yaml:"date"`
}

// NewRelease builds a Release with its date normalized to UTC.
func NewRelease(name string, releaseDate time.Time) Release {
	return Release{Name: name, ReleaseDate: releaseDate.UTC()}
}

func (r Release) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.ReleaseDate.Format(time.RFC3339))
}

// WatchResult is the outcome of one watcher execution.
// MissedReleases is ordered most recent first and never contains CurrentRelease.
type WatchResult struct {
	Config            WatcherConfig
	CurrentRelease    *Release
	MissedReleases    []Release
	MostRecentRelease *Release
}

// NewWatchResult builds a WatchResult and derives MostRecentRelease from missed.
func NewWatchResult(cfg WatcherConfig, current *Release, missed []Release) WatchResult {
	result := WatchResult{
		Config:         cfg,
		CurrentRelease: current,
		MissedReleases: missed,
	}
	if result.MissedReleases == nil {
		result.MissedReleases = []Release{}
	}
	if len(result.MissedReleases) > 0 {
		mostRecent := result.MissedReleases[0]
		result.MostRecentRelease = &mostRecent
	}
	return result
}

// MissedCount returns the number of releases newer than the current one.
func (r WatchResult) MissedCount() int {
	return len(r.MissedReleases)
}

// UpToDate reports whether the current release was found and nothing newer exists.
func (r WatchResult) UpToDate() bool {
	return r.CurrentRelease != nil && len(r.MissedReleases) == 0
}

// TypeName returns the watcher kind of the result, or an empty string without config.
func (r WatchResult) TypeName() string {
	if r.Config == nil {
		return ""
	}
	return r.Config.TypeName()
}

// Name returns the friendly name of the watched artifact.
func (r WatchResult) Name() string {
	if r.Config == nil {
		return ""
	}
	return r.Config.Name()
}
