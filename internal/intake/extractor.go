package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klasroom/taskintake/internal/llm"
)

// Extractor turns a free-form utterance into raw per-field guesses via one
// low-randomness completion call. It never commits to a class or subject
// entity: it emits raw query sub-objects for the resolver to match.
type Extractor struct {
	provider llm.Provider
	model    string
}

// NewExtractor creates an Extractor over the given completion provider.
func NewExtractor(provider llm.Provider, model string) *Extractor {
	return &Extractor{provider: provider, model: model}
}

// rawField is the per-field shape the extraction prompt asks for. The
// provider's output is untyped JSON; everything is validated and coerced
// immediately after the call, never trusted downstream.
type rawField struct {
	Value      *string `json:"value"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	RawInput   string  `json:"raw_input,omitempty"`
}

// rawEntityQuery is the extractor's uncommitted class/subject mention.
type rawEntityQuery struct {
	Grade      string  `json:"grade,omitempty"`
	Section    string  `json:"section,omitempty"`
	Name       string  `json:"name,omitempty"`
	RawText    string  `json:"raw_text,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the validated output of one extraction call.
type Extraction struct {
	Title        rawField       `json:"title"`
	Description  rawField       `json:"description"`
	ClassQuery   rawEntityQuery `json:"class_query"`
	SubjectQuery rawEntityQuery `json:"subject_query"`
	DueDate      rawField       `json:"due_date"`
	Priority     rawField       `json:"priority"`
	Instructions rawField       `json:"instructions"`
}

const extractionSystemPrompt = `You extract structured school task details from a teacher's spoken or typed instruction.

Respond with a single JSON object of this exact shape:
{
  "title": {"value": string|null, "source": "explicit"|"inferred", "confidence": 0.0-1.0, "raw_input": string},
  "description": {"value": string|null, "source": ..., "confidence": ..., "raw_input": ...},
  "class_query": {"grade": string, "section": string, "raw_text": string, "source": ..., "confidence": ...},
  "subject_query": {"name": string, "raw_text": string, "source": ..., "confidence": ...},
  "due_date": {"value": "YYYY-MM-DD"|null, "source": ..., "confidence": ..., "raw_input": ...},
  "priority": {"value": "low"|"medium"|"high"|null, "source": ..., "confidence": ..., "raw_input": ...},
  "instructions": {"value": string|null, "source": ..., "confidence": ..., "raw_input": ...}
}

Rules:
- Never invent information that was not stated or confidently implied. When a detail is absent, set value to null, source to "unmatched" and confidence to 0.
- Mark directly stated details as "explicit" and details you derived as "inferred", with an honest confidence.
- Resolve relative date phrases ("tomorrow", "next Monday", "in two weeks") against the reference date given in the user message, and put the original phrase in raw_input.
- If no title is stated, synthesize a short one from the subject and work described, marked "inferred".
- For class_query and subject_query, report the mention exactly as heard (grade, section, raw text). Do not guess an ID: matching against the school's class list happens elsewhere.`

// Extract issues the completion call and validates its output. A malformed
// or non-JSON completion is an error, not a panic; the caller maps it to a
// structured parse-failure response.
func (e *Extractor) Extract(ctx context.Context, text, referenceDate string) (*Extraction, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: extractionSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Reference date (today): %s\n\nUtterance:\n%s", referenceDate, text)},
		},
		MaxTokens:   800,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("completing extraction: %w", err)
	}

	var extraction Extraction
	content := stripCodeFence(resp.Content)
	if err := json.Unmarshal([]byte(content), &extraction); err != nil {
		return nil, fmt.Errorf("parsing extraction output: %w", err)
	}
	return &extraction, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// coerceField validates one raw field into the typed shape. A missing or
// empty value collapses to the safe unmatched state regardless of what the
// model claimed, and a field the model itself marked unmatched loses its
// value: an "unmatched" tag is authoritative, upholding the no-fabrication
// rule.
func coerceField(raw rawField) Field[string] {
	if raw.Value == nil || strings.TrimSpace(*raw.Value) == "" {
		return Unmatched[string](raw.RawInput)
	}
	if Source(raw.Source) == SourceUnmatched {
		return Unmatched[string](raw.RawInput)
	}
	value := strings.TrimSpace(*raw.Value)
	return Field[string]{
		Value:      &value,
		Source:     coerceSource(raw.Source),
		Confidence: clampConfidence(raw.Confidence),
		RawInput:   raw.RawInput,
	}
}

// coerceDateField additionally requires a canonical calendar date; anything
// else is left unmatched rather than defaulted.
func coerceDateField(raw rawField) Field[string] {
	f := coerceField(raw)
	if f.Value != nil && !ValidISODate(*f.Value) {
		return Unmatched[string](raw.RawInput)
	}
	return f
}

// coercePriorityField parses the priority enum, defaulting to medium when
// the model reported nothing usable.
func coercePriorityField(raw rawField) Field[Priority] {
	if raw.Value != nil && Source(raw.Source) != SourceUnmatched {
		switch Priority(strings.ToLower(strings.TrimSpace(*raw.Value))) {
		case PriorityLow, PriorityMedium, PriorityHigh:
			p := Priority(strings.ToLower(strings.TrimSpace(*raw.Value)))
			return Field[Priority]{
				Value:      &p,
				Source:     coerceSource(raw.Source),
				Confidence: clampConfidence(raw.Confidence),
				RawInput:   raw.RawInput,
			}
		}
	}
	p := PriorityMedium
	return Field[Priority]{Value: &p, Source: SourceDefault, Confidence: 1, RawInput: raw.RawInput}
}

func coerceSource(s string) Source {
	switch Source(s) {
	case SourceExplicit, SourceInferred, SourceDefault:
		return Source(s)
	default:
		return SourceInferred
	}
}

func coerceQuerySource(s string) Source {
	switch Source(s) {
	case SourceExplicit, SourceInferred:
		return Source(s)
	default:
		return SourceExplicit
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
