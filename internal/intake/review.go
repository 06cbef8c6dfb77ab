package intake

// NeedsConfirmationThreshold is the confidence below which a field must be
// confirmed by a human, and below which the whole task requires confirmation.
const NeedsConfirmationThreshold = 0.7

// aggregateFields is the fixed field set the overall confidence is computed
// over. Fields outside this set never affect the aggregate.
var aggregateFields = []string{"title", "class", "subject", "due_date", "priority"}

// FieldConfidences returns the per-field confidences of the fixed field set.
func FieldConfidences(t *ParsedTask) map[string]float64 {
	return map[string]float64{
		"title":    t.Title.Confidence,
		"class":    t.Class.Confidence,
		"subject":  t.Subject.Confidence,
		"due_date": t.DueDate.Confidence,
		"priority": t.Priority.Confidence,
	}
}

// OverallConfidence is the arithmetic mean over the fixed field set.
// Ambiguous and absent matches both carry zero confidence, so both drag the
// aggregate down equally.
func OverallConfidence(t *ParsedTask) float64 {
	confidences := FieldConfidences(t)
	sum := 0.0
	for _, name := range aggregateFields {
		sum += confidences[name]
	}
	return sum / float64(len(aggregateFields))
}

// FieldsNeedingReview flags every field a human must confirm: null values,
// low confidence, ambiguous entity matches, and any inferred due date. A
// misresolved date is expensive downstream, so relative-date resolutions are
// surfaced even at high confidence.
func FieldsNeedingReview(t *ParsedTask) []string {
	var flagged []string

	if t.Title.Value == nil || t.Title.Confidence < NeedsConfirmationThreshold {
		flagged = append(flagged, "title")
	}
	if t.Class.Value == nil || t.Class.Confidence < NeedsConfirmationThreshold ||
		t.Class.MatchStatus == MatchMultiple {
		flagged = append(flagged, "class")
	}
	if t.Subject.Value == nil || t.Subject.Confidence < NeedsConfirmationThreshold ||
		t.Subject.MatchStatus == MatchMultiple {
		flagged = append(flagged, "subject")
	}
	if t.DueDate.Value == nil || t.DueDate.Confidence < NeedsConfirmationThreshold ||
		t.DueDate.Source == SourceInferred {
		flagged = append(flagged, "due_date")
	}
	if t.Priority.Value == nil || t.Priority.Confidence < NeedsConfirmationThreshold {
		flagged = append(flagged, "priority")
	}

	return flagged
}

// RequiresConfirmation reports whether the task as a whole must be confirmed
// before creation.
func RequiresConfirmation(flagged []string, overall float64) bool {
	return len(flagged) > 0 || overall < NeedsConfirmationThreshold
}
