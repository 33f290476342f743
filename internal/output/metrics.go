package output

import (
	"math"
	"sync"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "releasewatcher"

var (
	newReleasesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "new_releases_total"),
		"Number of releases published after the current one.",
		[]string{"name", "type"}, nil,
	)
	releaseAgeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "release_age_seconds"),
		"Age of the current release in seconds, +Inf when the current release is unknown.",
		[]string{"name", "type"}, nil,
	)
)

// releaseSample is the state of one watcher at the last emit
type releaseSample struct {
	name        string
	typeName    string
	newReleases float64
	age         float64
}

// releaseGauges exposes the samples of the last emit to the prometheus outputs. A scrape always
// sees one complete emit: set swaps the whole snapshot under the lock.
type releaseGauges struct {
	mu      sync.RWMutex
	samples []releaseSample
}

func newReleaseGauges(registerer prometheus.Registerer) (*releaseGauges, error) {
	gauges := &releaseGauges{}
	if err := registerer.Register(gauges); err != nil {
		return nil, err
	}
	return gauges, nil
}

// Describe implements prometheus.Collector
func (g *releaseGauges) Describe(ch chan<- *prometheus.Desc) {
	ch <- newReleasesDesc
	ch <- releaseAgeDesc
}

// Collect implements prometheus.Collector
func (g *releaseGauges) Collect(ch chan<- prometheus.Metric) {
	g.mu.RLock()
	samples := g.samples
	g.mu.RUnlock()

	for _, sample := range samples {
		ch <- prometheus.MustNewConstMetric(newReleasesDesc, prometheus.GaugeValue, sample.newReleases, sample.name, sample.typeName)
		ch <- prometheus.MustNewConstMetric(releaseAgeDesc, prometheus.GaugeValue, sample.age, sample.name, sample.typeName)
	}
}

// set replaces every series with the values of results. Results sharing a name and type
// keep the last value, as a gauge would.
func (g *releaseGauges) set(results []models.WatchResult, now time.Time) {
	samples := make([]releaseSample, 0, len(results))
	index := make(map[[2]string]int, len(results))
	for _, result := range results {
		sample := releaseSample{
			name:        result.Name(),
			typeName:    result.TypeName(),
			newReleases: float64(result.MissedCount()),
			age:         releaseAge(result, now),
		}
		key := [2]string{sample.name, sample.typeName}
		if i, ok := index[key]; ok {
			samples[i] = sample
			continue
		}
		index[key] = len(samples)
		samples = append(samples, sample)
	}

	g.mu.Lock()
	g.samples = samples
	g.mu.Unlock()
}

// releaseAge returns how long ago the current release was published
func releaseAge(result models.WatchResult, now time.Time) float64 {
	if result.CurrentRelease == nil {
		return math.Inf(1)
	}
	age := now.Sub(result.CurrentRelease.ReleaseDate).Seconds()
	if age < 0 {
		return 0
	}
	return age
}
