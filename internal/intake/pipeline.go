package intake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klasroom/taskintake/internal/audit"
	"github.com/klasroom/taskintake/internal/quota"
	"github.com/klasroom/taskintake/internal/stt"
)

// Pipeline is the request-to-response intake computation. All collaborators
// are injected so every stage can be driven by fakes in tests. A nil
// transcriber or extractor means that capability is not configured.
type Pipeline struct {
	quota       quota.Guard
	transcriber stt.Transcriber
	extractor   *Extractor
	audit       *audit.Store
	now         func() time.Time
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(guard quota.Guard, transcriber stt.Transcriber, extractor *Extractor, auditStore *audit.Store) *Pipeline {
	return &Pipeline{
		quota:       guard,
		transcriber: transcriber,
		extractor:   extractor,
		audit:       auditStore,
		now:         time.Now,
	}
}

// Run processes one parse request. It always returns a response and always
// appends exactly one intake log entry, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, userID string, req ParseRequest) (resp *ParseResponse) {
	start := p.now()

	entry := audit.Entry{
		UserID:         userID,
		SchoolCode:     req.SchoolCode,
		AcademicYearID: req.AcademicYearID,
		InputType:      string(req.InputType),
		RawInput:       rawInputSummary(req),
	}

	resp = &ParseResponse{
		Errors:              []FieldError{},
		FieldsNeedingReview: []string{},
	}

	// Any unexpected panic becomes an INTERNAL_ERROR response, and the
	// attempt is still audited so it is not silently lost.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("intake: panic processing request for user %s: %v", userID, r)
			resp = &ParseResponse{
				Errors: []FieldError{{
					Field:   "request",
					Code:    CodeInternalError,
					Message: "an internal error occurred",
				}},
				FieldsNeedingReview: []string{},
			}
			entry.Status = audit.StatusFailed
			entry.ErrorCode = CodeInternalError
			entry.ErrorDetail = fmt.Sprint(r)
			p.appendLog(ctx, &entry, start, resp)
		}
	}()

	// Stage 1: request validation, before any external call.
	if errs := validateRequest(req); len(errs) > 0 {
		resp.Errors = errs
		entry.Status = audit.StatusFailed
		entry.ErrorCode = errs[0].Code
		p.appendLog(ctx, &entry, start, resp)
		return resp
	}

	// Stage 2: quota is a hard precondition. A denial makes no provider
	// call but is still recorded.
	allowance, err := p.quota.CheckAllowed(ctx, userID)
	if err != nil {
		log.Printf("intake: checking quota for user %s: %v", userID, err)
		return p.fail(ctx, &entry, start, resp, CodeInternalError, "request",
			"an internal error occurred", err.Error())
	}
	resp.Quota = &QuotaInfo{
		DailyRemaining:   allowance.DailyRemaining,
		MonthlyRemaining: allowance.MonthlyRemaining,
		Reason:           allowance.Reason,
	}
	if !allowance.Allowed {
		resp.Errors = []FieldError{{
			Field:   "request",
			Code:    CodeQuotaExceeded,
			Message: allowance.Reason,
		}}
		entry.Status = audit.StatusQuotaDenied
		entry.ErrorCode = CodeQuotaExceeded
		entry.ErrorDetail = allowance.Reason
		p.appendLog(ctx, &entry, start, resp)
		return resp
	}

	if p.extractor == nil || (req.InputType == InputVoice && p.transcriber == nil) {
		return p.fail(ctx, &entry, start, resp, CodeAINotConfigured, "request",
			"AI processing is not configured on this server", "")
	}

	if err := p.quota.IncrementUsage(ctx, userID, req.SchoolCode); err != nil {
		log.Printf("intake: incrementing usage for user %s: %v", userID, err)
	}

	// Stage 3: transcription (voice only), before extraction.
	text := req.Text
	if req.InputType == InputVoice {
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return p.fail(ctx, &entry, start, resp, CodeMissingAudio, "audio_base64",
				"audio_base64 is not valid base64", err.Error())
		}

		result, err := p.transcriber.Transcribe(ctx, audio)
		if result != nil {
			// Keep whatever was produced up to the failure point.
			entry.Transcription = result.Text
			entry.DetectedLanguage = result.Language
			resp.Transcription = result.Text
			resp.DetectedLanguage = result.Language
		}
		switch {
		case errors.Is(err, stt.ErrAudioTooLarge):
			return p.fail(ctx, &entry, start, resp, CodeAudioTooLong, "audio_base64",
				"audio payload is too large", err.Error())
		case errors.Is(err, stt.ErrAudioTooLong):
			return p.fail(ctx, &entry, start, resp, CodeAudioTooLong, "audio_base64",
				"audio is longer than the allowed duration", err.Error())
		case err != nil:
			// Provider detail is logged, never echoed to the caller.
			log.Printf("intake: transcription failed for user %s: %v", userID, err)
			return p.fail(ctx, &entry, start, resp, CodeAIServiceError, "audio_base64",
				"the speech service could not process this audio", err.Error())
		}
		text = result.Text
	}

	// Stage 4: structured extraction.
	referenceDate := ResolveReferenceDate(req.ReferenceDate, p.now())
	extraction, err := p.extractor.Extract(ctx, text, referenceDate)
	if err != nil {
		log.Printf("intake: extraction failed for user %s: %v", userID, err)
		return p.fail(ctx, &entry, start, resp, CodeAIServiceError, "text",
			"the AI service could not process this request", err.Error())
	}

	// Stage 5: entity and date resolution over pure functions.
	task := p.buildParsedTask(ctx, extraction, req, referenceDate)

	// Stage 6: confidence aggregation and review gate.
	flagged := FieldsNeedingReview(task)
	overall := OverallConfidence(task)

	resp.Success = true
	resp.ParsedTask = task
	resp.OverallConfidence = overall
	resp.FieldsNeedingReview = flagged
	resp.RequiresConfirmation = RequiresConfirmation(flagged, overall)

	entry.Status = audit.StatusCompleted
	entry.OverallConfidence = overall
	entry.FieldsNeedingReview = flagged
	entry.RequiresConfirmation = resp.RequiresConfirmation
	if data, err := json.Marshal(task); err == nil {
		entry.ParsedTask = string(data)
	}
	if data, err := json.Marshal(FieldConfidences(task)); err == nil {
		entry.FieldConfidences = string(data)
	}

	p.appendLog(ctx, &entry, start, resp)
	return resp
}

// buildParsedTask assembles the aggregate from the extraction plus resolver
// outputs. Class matching, subject matching, and date display derivation are
// independent pure functions, so they run concurrently; correctness does not
// depend on their ordering.
func (p *Pipeline) buildParsedTask(ctx context.Context, extraction *Extraction, req ParseRequest, referenceDate string) *ParsedTask {
	task := &ParsedTask{
		Title:        coerceField(extraction.Title),
		Description:  coerceField(extraction.Description),
		DueDate:      coerceDateField(extraction.DueDate),
		Priority:     coercePriorityField(extraction.Priority),
		Instructions: coerceField(extraction.Instructions),
	}

	assigned := referenceDate
	task.AssignedDate = Field[string]{Value: &assigned, Source: SourceDefault, Confidence: 1}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		task.Class = MatchClass(ClassQuery{
			Grade:   extraction.ClassQuery.Grade,
			Section: extraction.ClassQuery.Section,
			RawText: extraction.ClassQuery.RawText,
			Source:  coerceQuerySource(extraction.ClassQuery.Source),
		}, req.AvailableClasses)
		return nil
	})
	g.Go(func() error {
		name := extraction.SubjectQuery.Name
		if name == "" {
			name = extraction.SubjectQuery.RawText
		}
		task.Subject = MatchSubject(SubjectQuery{
			Name:   name,
			Source: coerceQuerySource(extraction.SubjectQuery.Source),
		}, req.AvailableSubjects)
		return nil
	})
	g.Go(func() error {
		if task.DueDate.Value != nil {
			if display, err := FormatDateDisplay(*task.DueDate.Value); err == nil {
				task.DueDateDisplay = display
			}
		}
		return nil
	})
	// Every closure returns nil; checked so a future fallible stage cannot
	// be silently dropped.
	if err := g.Wait(); err != nil {
		log.Printf("intake: resolving task fields: %v", err)
	}

	return task
}

// fail records a terminal failure and produces the matching error response.
// The caller-visible message is generic; detail stays in the log entry.
func (p *Pipeline) fail(ctx context.Context, entry *audit.Entry, start time.Time, resp *ParseResponse, code, field, message, detail string) *ParseResponse {
	resp.Errors = append(resp.Errors, FieldError{Field: field, Code: code, Message: message})
	entry.Status = audit.StatusFailed
	entry.ErrorCode = code
	entry.ErrorDetail = detail
	p.appendLog(ctx, entry, start, resp)
	return resp
}

// appendLog writes the intake log entry before the response is returned.
// A storage failure is logged but does not replace the response.
func (p *Pipeline) appendLog(ctx context.Context, entry *audit.Entry, start time.Time, resp *ParseResponse) {
	entry.DurationMs = p.now().Sub(start).Milliseconds()
	id, err := p.audit.Append(ctx, *entry)
	if err != nil {
		log.Printf("intake: appending intake log: %v", err)
		return
	}
	resp.LogID = id
}

// validateRequest checks the request shape before any external call.
func validateRequest(req ParseRequest) []FieldError {
	var errs []FieldError

	switch req.InputType {
	case InputVoice:
		if req.AudioBase64 == "" {
			errs = append(errs, FieldError{
				Field:   "audio_base64",
				Code:    CodeMissingAudio,
				Message: "audio_base64 is required for voice input",
			})
		}
		if req.Text != "" {
			errs = append(errs, FieldError{
				Field:   "text",
				Code:    CodeMissingFields,
				Message: "text must be empty for voice input",
			})
		}
	case InputText:
		if req.Text == "" {
			errs = append(errs, FieldError{
				Field:   "text",
				Code:    CodeMissingText,
				Message: "text is required for text input",
			})
		}
		if req.AudioBase64 != "" {
			errs = append(errs, FieldError{
				Field:   "audio_base64",
				Code:    CodeMissingFields,
				Message: "audio_base64 must be empty for text input",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "input_type",
			Code:    CodeMissingFields,
			Message: `input_type must be "voice" or "text"`,
		})
	}

	if req.SchoolCode == "" {
		errs = append(errs, FieldError{
			Field:   "school_code",
			Code:    CodeMissingFields,
			Message: "school_code is required",
		})
	}
	if req.AcademicYearID == "" {
		errs = append(errs, FieldError{
			Field:   "academic_year_id",
			Code:    CodeMissingFields,
			Message: "academic_year_id is required",
		})
	}

	return errs
}

// rawInputSummary is what the intake log stores as the raw input: the text
// itself, or a size marker for audio payloads.
func rawInputSummary(req ParseRequest) string {
	if req.InputType == InputVoice {
		return fmt.Sprintf("audio_base64(%d bytes)", len(req.AudioBase64))
	}
	return req.Text
}
