// Package catalog serves the public listing of live applications and the
// review dashboard counters.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/tagger"
	"gorm.io/gorm"
)

// Entry is one live application as shown in the catalog.
type Entry struct {
	AppID                 uint                `json:"app_id"`
	Name                  string              `json:"name"`
	Description           string              `json:"description"`
	Owner                 string              `json:"owner"`
	VersionID             string              `json:"version_id"`
	Preview               *string             `json:"preview,omitempty"`
	FunctionalDescription string              `json:"functional_description"`
	OperatingInstructions string              `json:"operating_instructions"`
	Features              map[string][]string `json:"features"`
	PublishedAt           *time.Time          `json:"published_at"`
}

// ListLive returns published applications, newest publication first, with
// their live version's features in lang.
func ListLive(db *gorm.DB, lang string) ([]Entry, error) {
	var apps []models.Application
	if err := db.Where("status = ? AND live_version_id IS NOT NULL", models.StatusPublished).
		Order("published_at DESC").Order("id DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("catalog: list live: %w", err)
	}
	if len(apps) == 0 {
		return []Entry{}, nil
	}

	ids := make([]string, len(apps))
	for i, a := range apps {
		ids[i] = *a.LiveVersionID
	}
	var versions []models.Version
	if err := db.Where("id IN ?", ids).Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("catalog: load live versions: %w", err)
	}
	byID := make(map[string]models.Version, len(versions))
	for _, v := range versions {
		byID[v.ID] = v
	}

	entries := make([]Entry, 0, len(apps))
	for _, a := range apps {
		v, ok := byID[*a.LiveVersionID]
		if !ok {
			continue
		}
		feats, err := tagger.ForVersion(db, v.ID, lang)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			AppID:                 a.ID,
			Name:                  a.Name,
			Description:           a.Description,
			Owner:                 a.Owner,
			VersionID:             v.ID,
			Preview:               v.PreviewArtifact,
			FunctionalDescription: v.FunctionalDescription,
			OperatingInstructions: v.OperatingInstructions,
			Features:              feats,
			PublishedAt:           a.PublishedAt,
		})
	}
	return entries, nil
}

// CategoryCount is the number of live applications tagged with a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrendDays is how many days of version creation the stats cover,
// today included.
const TrendDays = 30

// DayCount is the number of versions created on one day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats holds dashboard counters.
type Stats struct {
	Total         int             `json:"total"`
	ByStatus      map[string]int  `json:"by_status"`
	Exhausted     int             `json:"exhausted"`
	Categories    []CategoryCount `json:"categories"`
	VersionTrends []DayCount      `json:"version_trends"`
}

// ComputeStats counts applications by status, live applications by
// category in lang, and versions created per day over the last TrendDays.
// Deleted applications are excluded from the total.
func ComputeStats(db *gorm.DB, lang string, maxRetries int) (*Stats, error) {
	type statusRow struct {
		Status models.AppStatus
		Count  int
	}
	var rows []statusRow
	if err := db.Model(&models.Application{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: count by status: %w", err)
	}

	s := &Stats{ByStatus: make(map[string]int)}
	for _, st := range []models.AppStatus{
		models.StatusDraft, models.StatusPendingApproval, models.StatusApproved,
		models.StatusRejected, models.StatusPublished, models.StatusArchived,
	} {
		s.ByStatus[st.String()] = 0
	}
	for _, r := range rows {
		if r.Status == models.StatusDeleted {
			continue
		}
		s.ByStatus[r.Status.String()] += r.Count
		s.Total += r.Count
	}

	var exhausted int64
	if err := db.Model(&models.Application{}).
		Where("preview_generation_status = ? AND preview_generation_retries >= ? AND status <> ?",
			models.PreviewFailed, maxRetries, models.StatusDeleted).
		Count(&exhausted).Error; err != nil {
		return nil, fmt.Errorf("catalog: count exhausted: %w", err)
	}
	s.Exhausted = int(exhausted)

	cats, err := categoryDistribution(db, lang)
	if err != nil {
		return nil, err
	}
	s.Categories = cats

	now := time.Now()
	since := time.Date(now.Year(), now.Month(), now.Day()-(TrendDays-1), 0, 0, 0, 0, now.Location())
	trends, err := VersionTrends(db, since)
	if err != nil {
		return nil, err
	}
	s.VersionTrends = trends
	return s, nil
}

// VersionTrends counts versions created per day from since onwards, oldest
// day first. Days are taken in since's location; days without versions are
// omitted.
func VersionTrends(db *gorm.DB, since time.Time) ([]DayCount, error) {
	var stamps []time.Time
	if err := db.Model(&models.Version{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error; err != nil {
		return nil, fmt.Errorf("catalog: version trends: %w", err)
	}

	byDay := make(map[string]int)
	for _, ts := range stamps {
		byDay[ts.In(since.Location()).Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DayCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// categoryDistribution counts live applications per category name.
func categoryDistribution(db *gorm.DB, lang string) ([]CategoryCount, error) {
	var rows []CategoryCount
	if err := db.Table("applications").
		Select("features.name AS name, count(DISTINCT applications.id) AS count").
		Joins("JOIN version_features ON version_features.version_id = applications.live_version_id").
		Joins("JOIN features ON features.id = version_features.feature_id").
		Where("applications.status = ? AND features.type = ? AND features.lang = ?",
			models.StatusPublished, tagger.TypeCategory, lang).
		Group("features.name").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: category distribution: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}
