// Package intake turns a free-form voice or text utterance from a teacher or
// admin into a structured, confidence-scored task draft. Every extracted
// attribute carries an explicit provenance and a [0,1] confidence, and the
// review gate decides which fields a human must confirm before the task can
// be created. The pipeline is stateless: each request is a single computation
// over the utterance plus the caller-supplied class and subject directories,
// with the intake log as its only side effect.
package intake

// InputType discriminates the two request payload kinds.
type InputType string

const (
	InputVoice InputType = "voice"
	InputText  InputType = "text"
)

// Source describes how a field value was obtained.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourceInferred  Source = "inferred"
	SourceDefault   Source = "default"
	SourceUnmatched Source = "unmatched"
)

// Priority levels for a parsed task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// MatchStatus is the outcome of resolving a mention against a candidate list.
type MatchStatus string

const (
	MatchSingle   MatchStatus = "single_match"
	MatchMultiple MatchStatus = "multiple_matches"
	MatchNone     MatchStatus = "no_match"
)

// Field is the universal result shape for every extracted attribute.
// A nil Value always goes with SourceUnmatched and zero confidence; a
// non-nil Value always carries a source other than SourceUnmatched.
type Field[T any] struct {
	Value      *T      `json:"value"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
	RawInput   string  `json:"raw_input,omitempty"`
}

// Unmatched returns the safe zero Field: no value, no confidence.
func Unmatched[T any](raw string) Field[T] {
	return Field[T]{Source: SourceUnmatched, RawInput: raw}
}

// MatchOption is one ranked candidate offered for disambiguation.
type MatchOption struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity"`
}

// EntityMatch extends Field with the resolution outcome. Options is present
// only when MatchStatus is MatchMultiple, ranked descending by similarity
// and capped at maxOptions.
type EntityMatch[T any] struct {
	Field[T]
	MatchStatus MatchStatus   `json:"match_status"`
	Options     []MatchOption `json:"options,omitempty"`
}

// ClassRef identifies a resolved class.
type ClassRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SubjectRef identifies a resolved subject.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParsedTask is the aggregate pipeline output. It is constructed once per
// request and never mutated afterwards.
type ParsedTask struct {
	Title          Field[string]           `json:"title"`
	Description    Field[string]           `json:"description"`
	Class          EntityMatch[ClassRef]   `json:"class"`
	Subject        EntityMatch[SubjectRef] `json:"subject"`
	DueDate        Field[string]           `json:"due_date"`
	DueDateDisplay string                  `json:"due_date_display,omitempty"`
	AssignedDate   Field[string]           `json:"assigned_date"`
	Priority       Field[Priority]         `json:"priority"`
	Instructions   Field[string]           `json:"instructions"`
}

// ClassCandidate is one entry of the caller-supplied class directory.
type ClassCandidate struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Grade   string `json:"grade,omitempty"`
	Section string `json:"section,omitempty"`
}

// SubjectCandidate is one entry of the caller-supplied subject directory.
type SubjectCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseRequest is the JSON request body of POST /api/tasks/parse.
type ParseRequest struct {
	InputType         InputType          `json:"input_type"`
	AudioBase64       string             `json:"audio_base64,omitempty"`
	Text              string             `json:"text,omitempty"`
	SchoolCode        string             `json:"school_code"`
	AcademicYearID    string             `json:"academic_year_id"`
	ReferenceDate     string             `json:"reference_date,omitempty"` // YYYY-MM-DD
	AvailableClasses  []ClassCandidate   `json:"available_classes"`
	AvailableSubjects []SubjectCandidate `json:"available_subjects"`
}

// FieldError is one caller-visible error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes surfaced to the caller.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeMissingFields   = "MISSING_FIELDS"
	CodeMissingAudio    = "MISSING_AUDIO"
	CodeMissingText     = "MISSING_TEXT"
	CodeAINotConfigured = "AI_NOT_CONFIGURED"
	CodeAudioTooLong    = "AUDIO_TOO_LONG"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeAIServiceError  = "AI_SERVICE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// QuotaInfo carries the caller's remaining allowance. Negative values mean
// the dimension is unlimited.
type QuotaInfo struct {
	DailyRemaining   int    `json:"daily_remaining"`
	MonthlyRemaining int    `json:"monthly_remaining"`
	Reason           string `json:"reason,omitempty"`
}

// ParseResponse is the JSON response body of POST /api/tasks/parse.
type ParseResponse struct {
	Success              bool         `json:"success"`
	Transcription        string       `json:"transcription,omitempty"`
	DetectedLanguage     string       `json:"detected_language,omitempty"`
	ParsedTask           *ParsedTask  `json:"parsed_task,omitempty"`
	OverallConfidence    float64      `json:"overall_confidence"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	FieldsNeedingReview  []string     `json:"fields_needing_review"`
	Errors               []FieldError `json:"errors"`
	Quota                *QuotaInfo   `json:"quota,omitempty"`
	LogID                string       `json:"log_id,omitempty"`
}
