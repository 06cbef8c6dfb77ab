package intake

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/klasroom/taskintake/internal/audit"
	"github.com/klasroom/taskintake/internal/db"
	"github.com/klasroom/taskintake/internal/quota"
	"github.com/klasroom/taskintake/internal/stt"
)

type fakeGuard struct {
	allowance  quota.Allowance
	checkErr   error
	checks     int
	increments int
}

func (g *fakeGuard) CheckAllowed(context.Context, string) (quota.Allowance, error) {
	g.checks++
	return g.allowance, g.checkErr
}

func (g *fakeGuard) IncrementUsage(context.Context, string, string) error {
	g.increments++
	return nil
}

type fakeTranscriber struct {
	result *stt.Result
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (*stt.Result, error) {
	f.calls++
	return f.result, f.err
}

func allowedGuard() *fakeGuard {
	return &fakeGuard{allowance: quota.Allowance{Allowed: true, DailyRemaining: 49, MonthlyRemaining: 499}}
}

func newTestAudit(t *testing.T) *audit.Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return audit.NewStore(database)
}

func textRequest() ParseRequest {
	return ParseRequest{
		InputType:      InputText,
		Text:           "science homework for class seven a, chapter 5, due Wednesday",
		SchoolCode:     "SCH1",
		AcademicYearID: "AY2026",
		ReferenceDate:  "2026-08-31",
		AvailableClasses: []ClassCandidate{
			{ID: "c1", Label: "Grade 7 - A"},
			{ID: "c2", Label: "Grade 8 - A"},
		},
		AvailableSubjects: []SubjectCandidate{
			{ID: "s1", Name: "Science"},
			{ID: "s2", Name: "Mathematics"},
		},
	}
}

func auditCount(t *testing.T, store *audit.Store) int {
	t.Helper()
	entries, err := store.Query(context.Background(), audit.QueryFilter{})
	if err != nil {
		t.Fatalf("querying intake logs: %v", err)
	}
	return len(entries)
}

func lastEntry(t *testing.T, store *audit.Store, id string) *audit.Entry {
	t.Helper()
	entry, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("loading intake log %s: %v", id, err)
	}
	return entry
}

func TestPipelineTextHappyPath(t *testing.T) {
	guard := allowedGuard()
	provider := &scriptedProvider{content: sampleExtraction}
	store := newTestAudit(t)
	p := NewPipeline(guard, nil, NewExtractor(provider, "gpt-4o-mini"), store)

	resp := p.Run(context.Background(), "user-1", textRequest())

	if !resp.Success {
		t.Fatalf("Success = false, errors: %+v", resp.Errors)
	}
	if resp.ParsedTask == nil {
		t.Fatal("ParsedTask is nil")
	}
	task := resp.ParsedTask
	if task.Class.MatchStatus != MatchSingle || task.Class.Value.ID != "c1" {
		t.Errorf("Class = %+v, want single match c1", task.Class)
	}
	if task.Subject.MatchStatus != MatchSingle || task.Subject.Value.ID != "s1" {
		t.Errorf("Subject = %+v, want single match s1", task.Subject)
	}
	if task.DueDateDisplay != "Wednesday, 2 September 2026" {
		t.Errorf("DueDateDisplay = %q", task.DueDateDisplay)
	}
	if task.AssignedDate.Value == nil || *task.AssignedDate.Value != "2026-08-31" {
		t.Errorf("AssignedDate = %+v, want reference date", task.AssignedDate)
	}
	if task.Priority.Value == nil || *task.Priority.Value != PriorityMedium || task.Priority.Source != SourceDefault {
		t.Errorf("Priority = %+v, want defaulted medium", task.Priority)
	}

	// The due date was inferred from a relative phrase, so it must be
	// surfaced for review and the task held for confirmation.
	if !resp.RequiresConfirmation {
		t.Error("RequiresConfirmation = false, want true (inferred due date)")
	}
	wantReview := []string{"due_date"}
	if len(resp.FieldsNeedingReview) != 1 || resp.FieldsNeedingReview[0] != wantReview[0] {
		t.Errorf("FieldsNeedingReview = %v, want %v", resp.FieldsNeedingReview, wantReview)
	}

	if resp.Quota == nil || resp.Quota.DailyRemaining != 49 {
		t.Errorf("Quota = %+v", resp.Quota)
	}
	if guard.increments != 1 {
		t.Errorf("IncrementUsage called %d times, want 1", guard.increments)
	}

	if resp.LogID == "" {
		t.Fatal("LogID is empty")
	}
	entry := lastEntry(t, store, resp.LogID)
	if entry.Status != audit.StatusCompleted {
		t.Errorf("entry.Status = %q, want completed", entry.Status)
	}
	if entry.ParsedTask == "" || entry.FieldConfidences == "" {
		t.Error("completed entry should store the parsed task and confidences")
	}
	if auditCount(t, store) != 1 {
		t.Errorf("intake log has %d entries, want 1", auditCount(t, store))
	}
}

func TestPipelineQuotaDenied(t *testing.T) {
	guard := &fakeGuard{allowance: quota.Allowance{
		Allowed: false, DailyRemaining: 0, MonthlyRemaining: 120, Reason: "daily limit reached",
	}}
	provider := &scriptedProvider{content: sampleExtraction}
	store := newTestAudit(t)
	p := NewPipeline(guard, nil, NewExtractor(provider, "gpt-4o-mini"), store)

	resp := p.Run(context.Background(), "user-1", textRequest())

	if resp.Success {
		t.Error("Success = true, want false")
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeQuotaExceeded {
		t.Fatalf("Errors = %+v, want QUOTA_EXCEEDED", resp.Errors)
	}
	if resp.Quota == nil || resp.Quota.DailyRemaining != 0 || resp.Quota.Reason == "" {
		t.Errorf("Quota = %+v", resp.Quota)
	}

	// A denial makes no provider call and consumes no allowance.
	if provider.calls != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls)
	}
	if guard.increments != 0 {
		t.Errorf("IncrementUsage called %d times, want 0", guard.increments)
	}

	entry := lastEntry(t, store, resp.LogID)
	if entry.Status != audit.StatusQuotaDenied {
		t.Errorf("entry.Status = %q, want quota_denied", entry.Status)
	}
	if entry.ErrorCode != CodeQuotaExceeded {
		t.Errorf("entry.ErrorCode = %q", entry.ErrorCode)
	}
}

func TestPipelineValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ParseRequest)
		wantCode string
	}{
		{"missing text", func(r *ParseRequest) { r.Text = "" }, CodeMissingText},
		{"missing school code", func(r *ParseRequest) { r.SchoolCode = "" }, CodeMissingFields},
		{"missing academic year", func(r *ParseRequest) { r.AcademicYearID = "" }, CodeMissingFields},
		{"bad input type", func(r *ParseRequest) { r.InputType = "telepathy" }, CodeMissingFields},
		{"voice without audio", func(r *ParseRequest) {
			r.InputType = InputVoice
			r.Text = ""
		}, CodeMissingAudio},
		{"text with stray audio payload", func(r *ParseRequest) {
			r.AudioBase64 = base64.StdEncoding.EncodeToString([]byte("stray"))
		}, CodeMissingFields},
		{"voice with stray text payload", func(r *ParseRequest) {
			r.InputType = InputVoice
			r.AudioBase64 = base64.StdEncoding.EncodeToString([]byte("fake audio"))
		}, CodeMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := allowedGuard()
			store := newTestAudit(t)
			p := NewPipeline(guard, nil, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)

			req := textRequest()
			tt.mutate(&req)
			resp := p.Run(context.Background(), "user-1", req)

			if resp.Success {
				t.Error("Success = true, want false")
			}
			if len(resp.Errors) == 0 || resp.Errors[0].Code != tt.wantCode {
				t.Fatalf("Errors = %+v, want first code %s", resp.Errors, tt.wantCode)
			}
			if guard.checks != 0 {
				t.Errorf("quota checked %d times before validation passed, want 0", guard.checks)
			}

			entry := lastEntry(t, store, resp.LogID)
			if entry.Status != audit.StatusFailed {
				t.Errorf("entry.Status = %q, want failed", entry.Status)
			}
		})
	}
}

func voiceRequest() ParseRequest {
	req := textRequest()
	req.InputType = InputVoice
	req.Text = ""
	req.AudioBase64 = base64.StdEncoding.EncodeToString([]byte("fake audio bytes"))
	return req
}

func TestPipelineVoiceHappyPath(t *testing.T) {
	guard := allowedGuard()
	transcriber := &fakeTranscriber{result: &stt.Result{
		Text:            "science homework for class seven a due Wednesday",
		DurationSeconds: 12.5,
		Language:        "english",
	}}
	provider := &scriptedProvider{content: sampleExtraction}
	store := newTestAudit(t)
	p := NewPipeline(guard, transcriber, NewExtractor(provider, "gpt-4o-mini"), store)

	resp := p.Run(context.Background(), "user-1", voiceRequest())

	if !resp.Success {
		t.Fatalf("Success = false, errors: %+v", resp.Errors)
	}
	if transcriber.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", transcriber.calls)
	}
	if resp.Transcription == "" || resp.DetectedLanguage != "english" {
		t.Errorf("Transcription = %q, DetectedLanguage = %q", resp.Transcription, resp.DetectedLanguage)
	}

	entry := lastEntry(t, store, resp.LogID)
	if entry.Transcription != transcriber.result.Text {
		t.Errorf("entry.Transcription = %q", entry.Transcription)
	}
	if entry.InputType != string(InputVoice) {
		t.Errorf("entry.InputType = %q", entry.InputType)
	}
}

func TestPipelineAudioTooLong(t *testing.T) {
	guard := allowedGuard()
	// The provider transcribed the audio and then reported it over the
	// duration ceiling; the partial transcription is still kept.
	transcriber := &fakeTranscriber{
		result: &stt.Result{Text: "a very long recording", DurationSeconds: 300, Language: "english"},
		err:    stt.ErrAudioTooLong,
	}
	provider := &scriptedProvider{content: sampleExtraction}
	store := newTestAudit(t)
	p := NewPipeline(guard, transcriber, NewExtractor(provider, "gpt-4o-mini"), store)

	resp := p.Run(context.Background(), "user-1", voiceRequest())

	if resp.Success {
		t.Error("Success = true, want false")
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAudioTooLong {
		t.Fatalf("Errors = %+v, want AUDIO_TOO_LONG", resp.Errors)
	}
	if resp.Transcription != "a very long recording" {
		t.Errorf("Transcription = %q, want retained partial result", resp.Transcription)
	}
	if provider.calls != 0 {
		t.Errorf("extraction ran %d times after a rejected transcription, want 0", provider.calls)
	}

	entry := lastEntry(t, store, resp.LogID)
	if entry.Status != audit.StatusFailed || entry.ErrorCode != CodeAudioTooLong {
		t.Errorf("entry = status %q code %q", entry.Status, entry.ErrorCode)
	}
	if entry.Transcription != "a very long recording" {
		t.Errorf("entry.Transcription = %q", entry.Transcription)
	}
}

func TestPipelineAudioTooLarge(t *testing.T) {
	guard := allowedGuard()
	transcriber := &fakeTranscriber{err: stt.ErrAudioTooLarge}
	store := newTestAudit(t)
	p := NewPipeline(guard, transcriber, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)

	resp := p.Run(context.Background(), "user-1", voiceRequest())

	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAudioTooLong {
		t.Fatalf("Errors = %+v, want AUDIO_TOO_LONG", resp.Errors)
	}
}

func TestPipelineInvalidBase64(t *testing.T) {
	guard := allowedGuard()
	transcriber := &fakeTranscriber{result: &stt.Result{Text: "x"}}
	store := newTestAudit(t)
	p := NewPipeline(guard, transcriber, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)

	req := voiceRequest()
	req.AudioBase64 = "!!! not base64 !!!"
	resp := p.Run(context.Background(), "user-1", req)

	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeMissingAudio {
		t.Fatalf("Errors = %+v, want MISSING_AUDIO", resp.Errors)
	}
	if transcriber.calls != 0 {
		t.Errorf("transcriber called %d times, want 0", transcriber.calls)
	}
}

func TestPipelineTranscriberFailure(t *testing.T) {
	guard := allowedGuard()
	transcriber := &fakeTranscriber{err: errors.New("upstream timeout")}
	store := newTestAudit(t)
	p := NewPipeline(guard, transcriber, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)

	resp := p.Run(context.Background(), "user-1", voiceRequest())

	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAIServiceError {
		t.Fatalf("Errors = %+v, want AI_SERVICE_ERROR", resp.Errors)
	}
	// The caller sees a generic message; the provider detail stays server-side.
	if resp.Errors[0].Message == "upstream timeout" {
		t.Error("provider error detail leaked to the caller")
	}
	entry := lastEntry(t, store, resp.LogID)
	if entry.ErrorDetail != "upstream timeout" {
		t.Errorf("entry.ErrorDetail = %q, want provider detail retained", entry.ErrorDetail)
	}
}

func TestPipelineExtractionFailure(t *testing.T) {
	guard := allowedGuard()
	store := newTestAudit(t)
	p := NewPipeline(guard, nil, NewExtractor(&scriptedProvider{err: errors.New("model overloaded")}, "m"), store)

	resp := p.Run(context.Background(), "user-1", textRequest())

	if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAIServiceError {
		t.Fatalf("Errors = %+v, want AI_SERVICE_ERROR", resp.Errors)
	}
	entry := lastEntry(t, store, resp.LogID)
	if entry.Status != audit.StatusFailed {
		t.Errorf("entry.Status = %q, want failed", entry.Status)
	}
}

func TestPipelineAINotConfigured(t *testing.T) {
	guard := allowedGuard()
	store := newTestAudit(t)

	t.Run("no extractor", func(t *testing.T) {
		p := NewPipeline(guard, nil, nil, store)
		resp := p.Run(context.Background(), "user-1", textRequest())
		if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAINotConfigured {
			t.Fatalf("Errors = %+v, want AI_NOT_CONFIGURED", resp.Errors)
		}
	})

	t.Run("voice without transcriber", func(t *testing.T) {
		p := NewPipeline(guard, nil, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)
		resp := p.Run(context.Background(), "user-1", voiceRequest())
		if len(resp.Errors) != 1 || resp.Errors[0].Code != CodeAINotConfigured {
			t.Fatalf("Errors = %+v, want AI_NOT_CONFIGURED", resp.Errors)
		}
	})
}

func TestPipelineOneLogEntryPerRequest(t *testing.T) {
	guard := allowedGuard()
	store := newTestAudit(t)
	p := NewPipeline(guard, nil, NewExtractor(&scriptedProvider{content: sampleExtraction}, "m"), store)

	// A mix of outcomes; each request must leave exactly one trace.
	requests := []ParseRequest{
		textRequest(),
		{InputType: InputText}, // fails validation
		textRequest(),
	}
	for _, req := range requests {
		p.Run(context.Background(), "user-1", req)
	}

	if got := auditCount(t, store); got != len(requests) {
		t.Errorf("intake log has %d entries, want %d", got, len(requests))
	}
}
