package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nordgren/eventscout/internal/event"
)

func storedEvent(title string) *event.Validated {
	return &event.Validated{
		Title:       title,
		Date:        "2026-09-12",
		Location:    "Blue Note",
		Link:        "https://example.com/" + title,
		Source:      "citylist",
		ContentHash: event.ContentHash(title, "2026-09-12", "Blue Note", "citylist"),
	}
}

func TestMemoryInsertOrSkip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.InsertBatch(ctx, []*event.Validated{storedEvent("a"), storedEvent("b")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i, r := range first {
		if r.Outcome != Inserted {
			t.Errorf("row %d outcome = %s, want inserted", i, r.Outcome)
		}
	}

	second, err := m.InsertBatch(ctx, []*event.Validated{storedEvent("a"), storedEvent("c")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second[0].Outcome != Conflict {
		t.Errorf("duplicate row outcome = %s, want conflict", second[0].Outcome)
	}
	if second[1].Outcome != Inserted {
		t.Errorf("new row outcome = %s, want inserted", second[1].Outcome)
	}

	if m.Len() != 3 {
		t.Errorf("expected 3 stored rows, got %d", m.Len())
	}
}

func TestMemoryPerRowFailure(t *testing.T) {
	m := NewMemory()
	bad := storedEvent("bad")
	m.FailWith(bad.ContentHash, errors.New("connection reset"))

	results, err := m.InsertBatch(context.Background(), []*event.Validated{storedEvent("ok"), bad})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if results[0].Outcome != Inserted {
		t.Errorf("healthy row outcome = %s, want inserted", results[0].Outcome)
	}
	if results[1].Outcome != Error || results[1].Err == nil {
		t.Errorf("failing row outcome = %s err=%v, want error", results[1].Outcome, results[1].Err)
	}
}
