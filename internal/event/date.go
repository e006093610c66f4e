package event

import (
	"fmt"
	"time"
)

// dateFormats are tried in order. Formats later in the list are more
// ambiguous, so the specific ones go first.
var dateFormats = []string{
	"2006-01-02",
	"Jan 2 2006",
	"Jan 02 2006",
	"January 2, 2006",
	"January 2 2006",
	"01/02/2006",
	"1.2.06",
	"01.02.06",
	"01/02/06",
}

// yearlessFormats lack a year component. Parsed dates assume the current
// year; if that puts them in the past, the year rolls forward by one since
// listings advertise upcoming events.
var yearlessFormats = []string{
	"Jan 2",
	"Jan 02",
	"January 2",
	"1/2",
}

// ParseDate normalizes a scraped date string to ISO 8601 (2006-01-02).
// now anchors the current-year assumption for yearless formats.
func ParseDate(raw string, now time.Time) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	for _, layout := range yearlessFormats {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.Before(now.Truncate(24 * time.Hour)) {
			t = t.AddDate(1, 0, 0)
		}
		return t.Format("2006-01-02"), nil
	}

	return "", fmt.Errorf("unrecognized date format: %q", raw)
}
