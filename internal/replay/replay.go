// Package replay re-runs the pure resolution stages over stored intake logs.
// It is an offline model-quality tool: after thresholds or dictionaries
// change, replay reports how often today's review gate agrees with what was
// returned at intake time.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/klasroom/taskintake/internal/audit"
	"github.com/klasroom/taskintake/internal/intake"
)

// Stats summarizes one replay run.
type Stats struct {
	Total               int     // entries examined
	Replayed            int     // entries with a stored parsed task
	GateAgreements      int     // review-field set unchanged
	GateChanges         int     // review-field set differs
	ConfirmationChanges int     // requires_confirmation flipped
	MeanConfidenceDelta float64 // mean |overall now - overall then|
}

// Run replays all completed intake logs matching the filter. The progress
// callback, if non-nil, is invoked after each entry.
func Run(ctx context.Context, store *audit.Store, filter audit.QueryFilter, progress func(done, total int)) (*Stats, error) {
	filter.Status = audit.StatusCompleted
	entries, err := store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("loading intake logs: %w", err)
	}

	stats := &Stats{Total: len(entries)}
	var deltaSum float64

	for i, entry := range entries {
		if progress != nil {
			progress(i+1, len(entries))
		}
		if entry.ParsedTask == "" {
			continue
		}

		var task intake.ParsedTask
		if err := json.Unmarshal([]byte(entry.ParsedTask), &task); err != nil {
			continue
		}
		stats.Replayed++

		flagged := intake.FieldsNeedingReview(&task)
		overall := intake.OverallConfidence(&task)

		if sameFields(flagged, entry.FieldsNeedingReview) {
			stats.GateAgreements++
		} else {
			stats.GateChanges++
		}
		if intake.RequiresConfirmation(flagged, overall) != entry.RequiresConfirmation {
			stats.ConfirmationChanges++
		}
		deltaSum += math.Abs(overall - entry.OverallConfidence)
	}

	if stats.Replayed > 0 {
		stats.MeanConfidenceDelta = deltaSum / float64(stats.Replayed)
	}
	return stats, nil
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
