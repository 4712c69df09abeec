package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/bioconnect/internal/config"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/views"
)

const maxRecent = 10

type recentEntry struct {
	Query      string         `json:"query"`
	Filters    []model.Filter `json:"filters,omitempty"`
	SearchedAt time.Time      `json:"searched_at"`
}

func recentFilePath() string {
	return filepath.Join(config.Dir(), "recent.json")
}

// LoadRecent reads the recent searches, newest first.
func LoadRecent(path string) []views.RecentSearch {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var entries []recentEntry
	if json.Unmarshal(data, &entries) != nil {
		return nil
	}
	out := make([]views.RecentSearch, 0, len(entries))
	for _, e := range entries {
		out = append(out, views.RecentSearch{
			Query:      e.Query,
			Filters:    model.NewFilterSet(e.Filters...),
			SearchedAt: e.SearchedAt,
		})
	}
	return out
}

// SaveRecent moves the search to the top of the list, dropping an older
// identical entry.
func SaveRecent(path string, s views.RecentSearch) error {
	key := recentKey(s.Query, s.Filters)

	recent := LoadRecent(path)
	entries := []recentEntry{{Query: s.Query, Filters: s.Filters.Sorted(), SearchedAt: s.SearchedAt}}
	for _, r := range recent {
		if recentKey(r.Query, r.Filters) == key {
			continue
		}
		entries = append(entries, recentEntry{Query: r.Query, Filters: r.Filters.Sorted(), SearchedAt: r.SearchedAt})
	}
	if len(entries) > maxRecent {
		entries = entries[:maxRecent]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func recentKey(query string, fs model.FilterSet) string {
	return strings.ToLower(strings.TrimSpace(query)) + "|" + fs.String()
}
