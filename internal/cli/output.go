package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/syncer"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(s)
	if f != FormatText && f != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return f, nil
}

// SourceStatus is the per-source outcome included in crawl output.
type SourceStatus struct {
	Name       string `json:"name"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

// CrawlOutput reports a crawl run.
type CrawlOutput struct {
	CrawledAt      time.Time          `json:"crawled_at"`
	Sources        []SourceStatus     `json:"sources"`
	CandidateCount int                `json:"candidate_count"`
	Candidates     []*event.Candidate `json:"candidates,omitempty"`
}

// SyncOutput reports a sync run.
type SyncOutput struct {
	SyncedAt time.Time      `json:"synced_at"`
	Result   *syncer.Result `json:"result"`
}

// RunOutput reports a combined crawl-and-sync run.
type RunOutput struct {
	Crawl *CrawlOutput `json:"crawl"`
	Sync  *SyncOutput  `json:"sync"`
}

// StatusOutput reports the state of the data directory.
type StatusOutput struct {
	DataDir          string     `json:"data_dir"`
	TrackedEvents    int        `json:"tracked_events"`
	SyncedEvents     int        `json:"synced_events"`
	StoredCandidates int        `json:"stored_candidates"`
	CrawlLockHeld    bool       `json:"crawl_lock_held"`
	LastSync         *time.Time `json:"last_sync,omitempty"`
	TrackerPath      string     `json:"tracker_path"`
	CandidatesPath   string     `json:"candidates_path"`
}

type textRenderer interface {
	writeText(w io.Writer) error
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result textRenderer, format OutputFormat) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case FormatText:
		return result.writeText(w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func (o *CrawlOutput) writeText(w io.Writer) error {
	for _, s := range o.Sources {
		if s.Error != "" {
			fmt.Fprintf(w, "FAIL %s: %s\n", s.Name, s.Error)
			continue
		}
		fmt.Fprintf(w, "OK   %s: %d candidates\n", s.Name, s.Candidates)
	}
	for _, c := range o.Candidates {
		fmt.Fprintf(w, "  %s | %s | %s\n", c.Date, c.Title, c.Location)
	}
	fmt.Fprintf(w, "\nTotal: %d candidates from %d sources\n", o.CandidateCount, len(o.Sources))
	return nil
}

func (o *SyncOutput) writeText(w io.Writer) error {
	r := o.Result
	fmt.Fprintf(w, "Synced:     %d\n", r.SyncedCount)
	fmt.Fprintf(w, "Duplicates: %d\n", r.DuplicatesSkipped)
	fmt.Fprintf(w, "Evicted:    %d\n", r.EvictedCount)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "ERROR %s\n", e)
	}
	return nil
}

func (o *RunOutput) writeText(w io.Writer) error {
	if err := o.Crawl.writeText(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return o.Sync.writeText(w)
}

func (o *StatusOutput) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Data directory:    %s\n", o.DataDir)
	fmt.Fprintf(w, "Tracked events:    %d (%d synced)\n", o.TrackedEvents, o.SyncedEvents)
	fmt.Fprintf(w, "Stored candidates: %d\n", o.StoredCandidates)
	if o.LastSync != nil {
		fmt.Fprintf(w, "Last sync:         %s\n", o.LastSync.Format(time.RFC3339))
	}
	if o.CrawlLockHeld {
		fmt.Fprintln(w, "Crawl lock:        held")
	} else {
		fmt.Fprintln(w, "Crawl lock:        free")
	}
	return nil
}
