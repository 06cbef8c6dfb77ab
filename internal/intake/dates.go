package intake

import (
	"fmt"
	"time"
)

// ReferenceTimezone anchors "today" and relative-date phrases so resolution
// does not depend on server or client wall clocks.
const ReferenceTimezone = "Asia/Kolkata"

// isoDate is the canonical calendar date layout used throughout the pipeline.
const isoDate = "2006-01-02"

var referenceLocation = mustLoadLocation(ReferenceTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading reference timezone %s: %v", name, err))
	}
	return loc
}

// ReferenceLocation returns the fixed timezone all dates are anchored to.
func ReferenceLocation() *time.Location {
	return referenceLocation
}

// ResolveReferenceDate picks the reference "today" for a request: the
// caller-supplied date when it parses, otherwise the current date in the
// reference timezone.
func ResolveReferenceDate(supplied string, now time.Time) string {
	if supplied != "" {
		if _, err := time.ParseInLocation(isoDate, supplied, referenceLocation); err == nil {
			return supplied
		}
	}
	return now.In(referenceLocation).Format(isoDate)
}

// FormatDateDisplay renders a canonical ISO date as a human-readable string,
// e.g. "Monday, 2 September 2026". It returns an error for non-ISO input.
func FormatDateDisplay(iso string) (string, error) {
	t, err := time.ParseInLocation(isoDate, iso, referenceLocation)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", iso, err)
	}
	return t.Format("Monday, 2 January 2006"), nil
}

// ValidISODate reports whether the given string is a canonical calendar date.
func ValidISODate(iso string) bool {
	_, err := time.ParseInLocation(isoDate, iso, referenceLocation)
	return err == nil
}
