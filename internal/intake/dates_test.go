package intake

import (
	"testing"
	"time"
)

func TestFormatDateDisplay(t *testing.T) {
	tests := []struct {
		iso  string
		want string
	}{
		{"2026-09-02", "Wednesday, 2 September 2026"},
		{"2026-01-01", "Thursday, 1 January 2026"},
		{"2026-12-25", "Friday, 25 December 2026"},
	}

	for _, tt := range tests {
		got, err := FormatDateDisplay(tt.iso)
		if err != nil {
			t.Errorf("FormatDateDisplay(%q) returned error: %v", tt.iso, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatDateDisplay(%q) = %q, want %q", tt.iso, got, tt.want)
		}
	}
}

func TestFormatDateDisplayInvalid(t *testing.T) {
	for _, iso := range []string{"", "tomorrow", "02-09-2026", "2026-13-01", "2026-02-30"} {
		if _, err := FormatDateDisplay(iso); err == nil {
			t.Errorf("FormatDateDisplay(%q) should fail", iso)
		}
	}
}

func TestResolveReferenceDate(t *testing.T) {
	// 2026-08-30 20:00 UTC is already 2026-08-31 in Asia/Kolkata.
	now := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		supplied string
		want     string
	}{
		{"valid supplied date wins", "2026-09-15", "2026-09-15"},
		{"empty falls back to reference-timezone today", "", "2026-08-31"},
		{"garbage falls back", "next week", "2026-08-31"},
		{"wrong layout falls back", "15/09/2026", "2026-08-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveReferenceDate(tt.supplied, now); got != tt.want {
				t.Errorf("ResolveReferenceDate(%q) = %q, want %q", tt.supplied, got, tt.want)
			}
		})
	}
}

func TestValidISODate(t *testing.T) {
	valid := []string{"2026-09-02", "2000-02-29"}
	for _, iso := range valid {
		if !ValidISODate(iso) {
			t.Errorf("ValidISODate(%q) = false, want true", iso)
		}
	}
	invalid := []string{"", "2026-9-2", "2026-02-30", "someday"}
	for _, iso := range invalid {
		if ValidISODate(iso) {
			t.Errorf("ValidISODate(%q) = true, want false", iso)
		}
	}
}

func TestReferenceLocation(t *testing.T) {
	loc := ReferenceLocation()
	if loc == nil {
		t.Fatal("ReferenceLocation returned nil")
	}
	if loc.String() != ReferenceTimezone {
		t.Errorf("location = %q, want %q", loc.String(), ReferenceTimezone)
	}
}
