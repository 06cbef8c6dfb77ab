package audit

import "time"

// Status is the terminal state of one intake attempt.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusQuotaDenied Status = "quota_denied"
)

// Entry is a single intake log record. One entry is written per parse
// request, whatever the outcome, so every user-visible attempt can be
// reconstructed later. Entries are immutable once written.
type Entry struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	UserID               string    `json:"user_id"`
	SchoolCode           string    `json:"school_code"`
	AcademicYearID       string    `json:"academic_year_id"`
	InputType            string    `json:"input_type"`
	RawInput             string    `json:"raw_input"`
	Transcription        string    `json:"transcription,omitempty"`
	DetectedLanguage     string    `json:"detected_language,omitempty"`
	ParsedTask           string    `json:"parsed_task,omitempty"` // ParsedTask JSON
	FieldConfidences     string    `json:"field_confidences"`     // map[string]float64 JSON
	OverallConfidence    float64   `json:"overall_confidence"`
	FieldsNeedingReview  []string  `json:"fields_needing_review"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	Status               Status    `json:"status"`
	ErrorCode            string    `json:"error_code,omitempty"`
	ErrorDetail          string    `json:"error_detail,omitempty"`
	DurationMs           int64     `json:"duration_ms"`
}
