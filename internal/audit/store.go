package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/klasroom/taskintake/internal/db"
)

// Store provides append and query operations for intake log entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append inserts a new intake log entry and returns its ID. If entry.ID is
// empty a UUID is generated.
func (s *Store) Append(ctx context.Context, entry Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.FieldConfidences == "" {
		entry.FieldConfidences = "{}"
	}

	review, err := json.Marshal(entry.FieldsNeedingReview)
	if err != nil {
		return "", fmt.Errorf("marshalling review fields: %w", err)
	}
	if entry.FieldsNeedingReview == nil {
		review = []byte("[]")
	}

	requiresConfirmation := 0
	if entry.RequiresConfirmation {
		requiresConfirmation = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intake_logs (
			id, user_id, school_code, academic_year_id, input_type, raw_input,
			transcription, detected_language, parsed_task, field_confidences,
			overall_confidence, fields_needing_review, requires_confirmation,
			status, error_code, error_detail, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.SchoolCode,
		entry.AcademicYearID,
		entry.InputType,
		entry.RawInput,
		nullable(entry.Transcription),
		nullable(entry.DetectedLanguage),
		nullable(entry.ParsedTask),
		entry.FieldConfidences,
		entry.OverallConfidence,
		string(review),
		requiresConfirmation,
		string(entry.Status),
		nullable(entry.ErrorCode),
		nullable(entry.ErrorDetail),
		entry.DurationMs,
	)
	if err != nil {
		return "", fmt.Errorf("inserting intake log: %w", err)
	}
	return entry.ID, nil
}

// GetByID retrieves a single intake log entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM intake_logs WHERE id = ?", id)
	return scanInto(row)
}

// QueryFilter controls which intake log entries are returned by Query.
type QueryFilter struct {
	UserID     string
	SchoolCode string
	Status     Status
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// Query returns intake log entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SchoolCode != "" {
		clauses = append(clauses, "school_code = ?")
		args = append(args, filter.SchoolCode)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := selectColumns + " FROM intake_logs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying intake logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const selectColumns = `SELECT id, timestamp, user_id, school_code, academic_year_id,
	input_type, raw_input, transcription, detected_language, parsed_task,
	field_confidences, overall_confidence, fields_needing_review,
	requires_confirmation, status, error_code, error_detail, duration_ms`

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e                                             Entry
		ts, status, reviewJSON                        string
		transcription, language, parsed, code, detail sql.NullString
		requiresConfirmation                          int
	)

	err := sc.Scan(
		&e.ID, &ts, &e.UserID, &e.SchoolCode, &e.AcademicYearID,
		&e.InputType, &e.RawInput, &transcription, &language, &parsed,
		&e.FieldConfidences, &e.OverallConfidence, &reviewJSON,
		&requiresConfirmation, &status, &code, &detail, &e.DurationMs,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t
	}

	e.Status = Status(status)
	e.RequiresConfirmation = requiresConfirmation != 0
	if transcription.Valid {
		e.Transcription = transcription.String
	}
	if language.Valid {
		e.DetectedLanguage = language.String
	}
	if parsed.Valid {
		e.ParsedTask = parsed.String
	}
	if code.Valid {
		e.ErrorCode = code.String
	}
	if detail.Valid {
		e.ErrorDetail = detail.String
	}

	if err := json.Unmarshal([]byte(reviewJSON), &e.FieldsNeedingReview); err != nil {
		e.FieldsNeedingReview = nil
	}

	return &e, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
