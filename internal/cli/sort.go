package cli

import (
	"sort"
	"strings"
	"time"

	"github.com/nordgren/eventscout/internal/event"
)

// sortCandidates orders crawl output by date, then title, then source, so
// listings are stable across runs regardless of source ordering.
func sortCandidates(candidates []*event.Candidate) {
	now := time.Now()
	sort.SliceStable(candidates, func(i, j int) bool {
		di, okI := normalizedDate(candidates[i].Date, now)
		dj, okJ := normalizedDate(candidates[j].Date, now)

		// Valid dates sort before unparseable ones.
		if okI != okJ {
			return okI
		}
		if okI && di != dj {
			return di < dj
		}

		ti := strings.ToLower(candidates[i].Title)
		tj := strings.ToLower(candidates[j].Title)
		if ti != tj {
			return ti < tj
		}
		return candidates[i].Source < candidates[j].Source
	})
}

func normalizedDate(raw string, now time.Time) (string, bool) {
	d, err := event.ParseDate(strings.TrimSpace(raw), now)
	if err != nil {
		return "", false
	}
	return d, true
}
