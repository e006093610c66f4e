package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nordgren/eventscout/internal/event"
	"github.com/nordgren/eventscout/internal/syncer"
)

func TestParseFormat(t *testing.T) {
	if _, err := parseFormat("text"); err != nil {
		t.Errorf("parseFormat(text) error = %v", err)
	}
	if _, err := parseFormat("json"); err != nil {
		t.Errorf("parseFormat(json) error = %v", err)
	}
	if _, err := parseFormat("xml"); err == nil {
		t.Error("parseFormat(xml) should fail")
	}
}

func TestCrawlOutputText(t *testing.T) {
	out := &CrawlOutput{
		CrawledAt:      time.Now().UTC(),
		CandidateCount: 3,
		Sources: []SourceStatus{
			{Name: "blueroom", Candidates: 3},
			{Name: "blocked", Error: "challenge could not be resolved"},
		},
	}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, out, FormatText); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	text := buf.String()
	if !strings.Contains(text, "OK   blueroom: 3 candidates") {
		t.Errorf("missing source line in:\n%s", text)
	}
	if !strings.Contains(text, "FAIL blocked") {
		t.Errorf("missing failure line in:\n%s", text)
	}
	if !strings.Contains(text, "Total: 3 candidates from 2 sources") {
		t.Errorf("missing total line in:\n%s", text)
	}
}

func TestSyncOutputJSON(t *testing.T) {
	out := &SyncOutput{
		SyncedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Result: &syncer.Result{
			SyncedCount:       5,
			DuplicatesSkipped: 2,
		},
	}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, out, FormatJSON); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	var decoded SyncOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Result.SyncedCount != 5 || decoded.Result.DuplicatesSkipped != 2 {
		t.Errorf("decoded result = %+v", decoded.Result)
	}
}

func TestSortCandidates(t *testing.T) {
	candidates := []*event.Candidate{
		{Title: "Later Show", Date: "2026-05-02"},
		{Title: "zeta", Date: "2026-05-01"},
		{Title: "Alpha", Date: "2026-05-01"},
		{Title: "No Date", Date: "sometime"},
	}

	sortCandidates(candidates)

	want := []string{"Alpha", "zeta", "Later Show", "No Date"}
	for i, title := range want {
		if candidates[i].Title != title {
			t.Errorf("candidates[%d] = %q, want %q", i, candidates[i].Title, title)
		}
	}
}
