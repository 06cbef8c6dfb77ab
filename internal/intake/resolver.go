package intake

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Resolution thresholds. Matching is deterministic: the same query and
// candidate set always produce the same decision.
const (
	classKeepThreshold   = 0.25
	subjectKeepThreshold = 0.3
	autoAcceptScore      = 0.7
	autoAcceptMargin     = 0.2
	maxOptions           = 5

	gradeWeight    = 0.6
	sectionWeight  = 0.4
	gradeOnlyScore = 0.5
)

// ClassQuery is the extractor's raw class mention, not yet committed to an
// entity. Grade and Section are as spoken; RawText is the full mention.
type ClassQuery struct {
	Grade   string
	Section string
	RawText string
	Source  Source
}

// SubjectQuery is the extractor's raw subject mention.
type SubjectQuery struct {
	Name   string
	Source Source
}

// MatchClass resolves a class query against the caller-supplied candidate
// directory. Grade equality contributes 0.6 and section equality 0.4; a
// grade-only query scores matching candidates at 0.5 so a grade match stays
// useful without auto-accepting across sections. When neither dimension
// yields a score, a raw-string similarity between the mention and the
// candidate label is used instead.
func MatchClass(q ClassQuery, candidates []ClassCandidate) EntityMatch[ClassRef] {
	qGrade := NormalizeGrade(q.Grade)
	qSection := NormalizeSection(q.Section)

	empty := qGrade == "" && qSection == "" && strings.TrimSpace(q.RawText) == ""
	if empty || len(candidates) == 0 {
		return EntityMatch[ClassRef]{
			Field:       Unmatched[ClassRef](q.RawText),
			MatchStatus: MatchNone,
		}
	}

	var scored []MatchOption
	for _, c := range candidates {
		cGrade, cSection := candidateGradeSection(c)

		score := 0.0
		gradeMatched := qGrade != "" && cGrade != "" && qGrade == cGrade
		if gradeMatched {
			score += gradeWeight
		}
		if qSection != "" && cSection != "" && qSection == cSection {
			score += sectionWeight
		}
		if gradeMatched && qSection == "" {
			score = gradeOnlyScore
		}
		if score == 0 {
			score = stringSimilarity(q.RawText, c.Label)
		}

		if score > classKeepThreshold {
			scored = append(scored, MatchOption{ID: c.ID, Label: c.Label, Similarity: score})
		}
	}

	return decideClass(q, scored)
}

// MatchSubject resolves a subject mention by name similarity alone, since
// subjects have no grade/section decomposition.
func MatchSubject(q SubjectQuery, candidates []SubjectCandidate) EntityMatch[SubjectRef] {
	if strings.TrimSpace(q.Name) == "" || len(candidates) == 0 {
		return EntityMatch[SubjectRef]{
			Field:       Unmatched[SubjectRef](q.Name),
			MatchStatus: MatchNone,
		}
	}

	var scored []MatchOption
	for _, c := range candidates {
		score := stringSimilarity(q.Name, c.Name)
		if score > subjectKeepThreshold {
			scored = append(scored, MatchOption{ID: c.ID, Label: c.Name, Similarity: score})
		}
	}

	sortOptions(scored)

	status, top := decide(scored)
	switch status {
	case MatchNone:
		return EntityMatch[SubjectRef]{
			Field:       Unmatched[SubjectRef](q.Name),
			MatchStatus: MatchNone,
		}
	case MatchSingle:
		source := q.Source
		if source == "" || source == SourceUnmatched {
			source = SourceExplicit
		}
		return EntityMatch[SubjectRef]{
			Field: Field[SubjectRef]{
				Value:      &SubjectRef{ID: top.ID, Name: top.Label},
				Source:     source,
				Confidence: top.Similarity,
				RawInput:   q.Name,
			},
			MatchStatus: MatchSingle,
		}
	default:
		return EntityMatch[SubjectRef]{
			Field:       Unmatched[SubjectRef](q.Name),
			MatchStatus: MatchMultiple,
			Options:     capOptions(scored),
		}
	}
}

func decideClass(q ClassQuery, scored []MatchOption) EntityMatch[ClassRef] {
	sortOptions(scored)

	status, top := decide(scored)
	switch status {
	case MatchNone:
		return EntityMatch[ClassRef]{
			Field:       Unmatched[ClassRef](q.RawText),
			MatchStatus: MatchNone,
		}
	case MatchSingle:
		source := q.Source
		if source == "" || source == SourceUnmatched {
			source = SourceExplicit
		}
		return EntityMatch[ClassRef]{
			Field: Field[ClassRef]{
				Value:      &ClassRef{ID: top.ID, Label: top.Label},
				Source:     source,
				Confidence: top.Similarity,
				RawInput:   q.RawText,
			},
			MatchStatus: MatchSingle,
		}
	default:
		return EntityMatch[ClassRef]{
			Field:       Unmatched[ClassRef](q.RawText),
			MatchStatus: MatchMultiple,
			Options:     capOptions(scored),
		}
	}
}

// decide applies the shared auto-accept rules: a lone survivor, a top score
// above autoAcceptScore, or a margin over the runner-up above autoAcceptMargin
// all resolve to a single match.
func decide(scored []MatchOption) (MatchStatus, MatchOption) {
	switch {
	case len(scored) == 0:
		return MatchNone, MatchOption{}
	case len(scored) == 1:
		return MatchSingle, scored[0]
	case scored[0].Similarity > autoAcceptScore:
		return MatchSingle, scored[0]
	case scored[0].Similarity-scored[1].Similarity > autoAcceptMargin:
		return MatchSingle, scored[0]
	default:
		return MatchMultiple, scored[0]
	}
}

// sortOptions orders descending by similarity. The sort is stable so ties
// keep the caller-supplied candidate order and the decision is reproducible.
func sortOptions(opts []MatchOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].Similarity > opts[j].Similarity
	})
}

func capOptions(opts []MatchOption) []MatchOption {
	if len(opts) > maxOptions {
		return opts[:maxOptions]
	}
	return opts
}

// labelSkipWords are qualifier tokens ignored when deriving grade and
// section from a candidate's display label.
var labelSkipWords = map[string]bool{
	"grade": true, "class": true, "standard": true, "std": true,
	"section": true, "division": true, "sec": true, "div": true,
}

// candidateGradeSection derives a candidate's canonical grade and section,
// preferring its structured fields and falling back to tokens extracted
// from the display label ("Grade 7 - A", "Class V Rose", "7B").
func candidateGradeSection(c ClassCandidate) (grade, section string) {
	if c.Grade != "" {
		grade = NormalizeGrade(c.Grade)
	}
	if c.Section != "" {
		section = NormalizeSection(c.Section)
	}
	if grade != "" && section != "" {
		return grade, section
	}

	for _, tok := range splitLabelTokens(c.Label) {
		if labelSkipWords[tok] {
			continue
		}
		if grade == "" {
			if g := gradeToken(tok); g != "" {
				grade = g
				continue
			}
		}
		if section == "" {
			if s := sectionToken(tok); s != "" {
				section = s
			}
		}
	}
	return grade, section
}

func splitLabelTokens(label string) []string {
	return strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// gradeToken interprets a single label token as a grade, or returns "".
func gradeToken(tok string) string {
	if tok == "" {
		return ""
	}
	if isDigits(tok) {
		return NormalizeGrade(tok)
	}
	if m := ordinalRe.FindStringSubmatch(tok); m != nil {
		return m[1]
	}
	if g, ok := gradeWords[tok]; ok {
		return g
	}
	return ""
}

// sectionToken interprets a single label token as a section, or returns "".
func sectionToken(tok string) string {
	if len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'z' {
		return tok
	}
	if s, ok := sectionAliases[tok]; ok {
		return s
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stringSimilarity scores two raw strings in [0,1] using Jaro-Winkler,
// raised to the length ratio when one string contains the other.
func stringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	sim := matchr.JaroWinkler(a, b, true)

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if contain := float64(shorter) / float64(longer); contain > sim {
			sim = contain
		}
	}

	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
