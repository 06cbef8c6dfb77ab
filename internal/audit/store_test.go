package audit

import (
	"context"
	"testing"

	"github.com/klasroom/taskintake/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestAppendAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := Entry{
		UserID:               "u1",
		SchoolCode:           "SCH1",
		AcademicYearID:       "AY2026",
		InputType:            "text",
		RawInput:             "science homework for class seven a",
		ParsedTask:           `{"title":{"value":"homework"}}`,
		FieldConfidences:     `{"title":0.95}`,
		OverallConfidence:    0.87,
		FieldsNeedingReview:  []string{"due_date"},
		RequiresConfirmation: true,
		Status:               StatusCompleted,
		DurationMs:           1234,
	}

	id, err := store.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if id == "" {
		t.Fatal("Append returned empty id")
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.UserID != "u1" || got.SchoolCode != "SCH1" || got.InputType != "text" {
		t.Errorf("got %+v", got)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.OverallConfidence != 0.87 {
		t.Errorf("OverallConfidence = %v", got.OverallConfidence)
	}
	if len(got.FieldsNeedingReview) != 1 || got.FieldsNeedingReview[0] != "due_date" {
		t.Errorf("FieldsNeedingReview = %v", got.FieldsNeedingReview)
	}
	if !got.RequiresConfirmation {
		t.Error("RequiresConfirmation = false")
	}
	if got.ParsedTask == "" || got.FieldConfidences == "" {
		t.Error("JSON payload columns were not round-tripped")
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
	if got.DurationMs != 1234 {
		t.Errorf("DurationMs = %d", got.DurationMs)
	}
}

func TestAppendKeepsCallerID(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Append(context.Background(), Entry{
		ID: "fixed-id", UserID: "u1", Status: StatusFailed, ErrorCode: "INTERNAL_ERROR",
	})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q, want fixed-id", id)
	}
}

func TestAppendRejectsUnknownStatus(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Append(context.Background(), Entry{UserID: "u1", Status: "sideways"}); err == nil {
		t.Fatal("Append accepted an unknown status")
	}
}

func TestQueryFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []Entry{
		{UserID: "u1", SchoolCode: "SCH1", Status: StatusCompleted},
		{UserID: "u1", SchoolCode: "SCH1", Status: StatusFailed, ErrorCode: "AI_SERVICE_ERROR"},
		{UserID: "u2", SchoolCode: "SCH2", Status: StatusCompleted},
		{UserID: "u2", SchoolCode: "SCH2", Status: StatusQuotaDenied, ErrorCode: "QUOTA_EXCEEDED"},
	}
	for _, e := range seed {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("seeding entry: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"by user", QueryFilter{UserID: "u1"}, 2},
		{"by school", QueryFilter{SchoolCode: "SCH2"}, 2},
		{"by status", QueryFilter{Status: StatusCompleted}, 2},
		{"user and status", QueryFilter{UserID: "u1", Status: StatusFailed}, 1},
		{"no match", QueryFilter{UserID: "u3"}, 0},
		{"limit", QueryFilter{Limit: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query returned error: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("len(entries) = %d, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetByID(context.Background(), "no-such-id"); err == nil {
		t.Fatal("GetByID should fail for a missing id")
	}
}
