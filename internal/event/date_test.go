package event

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"iso", "2026-09-12", "2026-09-12", false},
		{"month day year", "Sep 12 2026", "2026-09-12", false},
		{"long month with comma", "September 12, 2026", "2026-09-12", false},
		{"slash full year", "09/12/2026", "2026-09-12", false},
		{"dotted short year", "9.12.26", "2026-09-12", false},
		{"slash short year", "09/12/26", "2026-09-12", false},
		{"yearless future keeps current year", "Sep 12", "2026-09-12", false},
		{"yearless past rolls forward", "Jan 10", "2027-01-10", false},
		{"empty", "", "", true},
		{"garbage", "next friday-ish", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateTodayDoesNotRoll(t *testing.T) {
	now := time.Date(2026, time.June, 15, 23, 0, 0, 0, time.UTC)

	got, err := ParseDate("Jun 15", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2026-06-15" {
		t.Errorf("same-day yearless date should stay in current year, got %q", got)
	}
}
