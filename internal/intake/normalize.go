package intake

import (
	"regexp"
	"strings"
)

// Fixed lookup dictionaries for grade and section canonicalization. Loaded
// once at process start and read-only thereafter, so they are safe to share
// across concurrent requests without locking.

// gradeWords maps spelt-out numbers, roman numerals, and early-years names
// to a canonical grade token.
var gradeWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"eleven": "11", "twelve": "12",

	"i": "1", "ii": "2", "iii": "3", "iv": "4", "v": "5", "vi": "6",
	"vii": "7", "viii": "8", "ix": "9", "x": "10", "xi": "11", "xii": "12",

	"kindergarten": "kg", "kinder": "kg", "kg": "kg",
	"lkg": "lkg", "lower kg": "lkg", "lower kindergarten": "lkg",
	"ukg": "ukg", "upper kg": "ukg", "upper kindergarten": "ukg",
	"nursery": "nursery", "playgroup": "nursery", "pre-k": "nursery",
}

// sectionAliases maps phonetic-alphabet and floral section names to a
// canonical single letter.
var sectionAliases = map[string]string{
	"alpha": "a", "bravo": "b", "charlie": "c", "delta": "d",
	"echo": "e", "foxtrot": "f", "golf": "g", "hotel": "h",

	"rose": "a", "lotus": "b", "lily": "c", "tulip": "d",
	"daisy": "e", "jasmine": "f", "marigold": "g", "orchid": "h",
	"sunflower": "i", "daffodil": "j",
}

var (
	gradeQualifierRe = regexp.MustCompile(`^(?:grade|class|standard|std\.?)\s*`)
	ordinalRe        = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)$`)
	sectionPrefixRe  = regexp.MustCompile(`^(?:section|division|sec\.?|div\.?)\s*`)
)

// NormalizeGrade canonicalizes a grade mention: "7th", "seven", "VII", and
// "Grade 7" all become "7". Unrecognized input passes through trimmed and
// lower-cased; the function never fails.
func NormalizeGrade(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return s
	}

	s = strings.TrimSpace(gradeQualifierRe.ReplaceAllString(s, ""))

	if m := ordinalRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if canonical, ok := gradeWords[s]; ok {
		return canonical
	}

	// Strip any leading zero so "07" compares equal to "7".
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

// NormalizeSection canonicalizes a section mention: "Section A", "Alpha",
// and "a" all become "a". Like NormalizeGrade it is total and never fails.
func NormalizeSection(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return s
	}

	s = strings.TrimSpace(sectionPrefixRe.ReplaceAllString(s, ""))

	if canonical, ok := sectionAliases[s]; ok {
		return canonical
	}
	return s
}
