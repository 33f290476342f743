package output

import (
	"sort"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
)

// Row is the flat rendering of one result shared by the tabular outputs.
// Absent releases leave their name empty and their date nil.
type Row struct {
	Type               string
	Name               string
	CurrentRelease     string
	CurrentReleaseDate *time.Time
	MissedCount        int
	NewestRelease      string
	NewestReleaseDate  *time.Time
	MissedReleases     []models.Release
	UpToDate           bool
	CurrentFound       bool
}

// NewRow flattens a result
func NewRow(result models.WatchResult) Row {
	row := Row{
		Type:           result.TypeName(),
		Name:           result.Name(),
		MissedCount:    result.MissedCount(),
		MissedReleases: result.MissedReleases,
		UpToDate:       result.UpToDate(),
		CurrentFound:   result.CurrentRelease != nil,
	}
	if result.CurrentRelease != nil {
		date := result.CurrentRelease.ReleaseDate.UTC()
		row.CurrentRelease = result.CurrentRelease.Name
		row.CurrentReleaseDate = &date
	}
	if result.MostRecentRelease != nil {
		date := result.MostRecentRelease.ReleaseDate.UTC()
		row.NewestRelease = result.MostRecentRelease.Name
		row.NewestReleaseDate = &date
	}
	return row
}

// buildRows flattens results sorted by type then name. Unless includeUpToDate is set, results
// without missed releases are dropped, including those whose current release was not found.
func buildRows(results []models.WatchResult, includeUpToDate bool) []Row {
	rows := make([]Row, 0, len(results))
	for _, result := range results {
		row := NewRow(result)
		if !includeUpToDate && row.MissedCount == 0 {
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func formatDate(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.UTC().Format(time.RFC3339)
}
