// Package calendar renders validated events as an iCalendar feed, so a
// synced data set can be subscribed to directly from a calendar client.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Event is the slice of a validated event the calendar needs.
type Event struct {
	UID      string
	Title    string
	Date     string // ISO 8601, 2006-01-02
	Time     string // optional, 15:04
	Location string
	Link     string
	Category string
}

// GenerateICS renders events as one VCALENDAR. Events whose date cannot
// be parsed are skipped; an all-day entry is produced when no start time
// is known.
func GenerateICS(events []*Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//eventscout//eventscout//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, ev := range events {
		date, err := time.Parse("2006-01-02", ev.Date)
		if err != nil {
			continue
		}
		writeEvent(&ics, ev, date, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, ev *Event, date, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%s@eventscout\r\n", ev.UID)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))

	if start, ok := startOfEvent(date, ev.Time); ok {
		fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(start))
		fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(start.Add(2*time.Hour)))
	} else {
		// All-day event when no start time is known.
		fmt.Fprintf(ics, "DTSTART;VALUE=DATE:%s\r\n", date.Format("20060102"))
		fmt.Fprintf(ics, "DTEND;VALUE=DATE:%s\r\n", date.AddDate(0, 0, 1).Format("20060102"))
	}

	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(ev.Title))

	description := ev.Link
	if ev.Category != "" {
		description = fmt.Sprintf("%s\n%s", ev.Category, ev.Link)
	}
	fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(description))

	if ev.Location != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(ev.Location))
	}
	if ev.Link != "" {
		fmt.Fprintf(ics, "URL:%s\r\n", ev.Link)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// startOfEvent combines the event date with its clock time when present.
func startOfEvent(date time.Time, clock string) (time.Time, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
