package opportunity

import (
	"math"
	"strings"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// CountChanges compares records with previously stored versions of the same
// properties, keyed by property id. One record may be both a title transfer
// and a value change.
func CountChanges(stored map[string]models.CanonicalProperty, records []models.CanonicalProperty) models.ChangeSummary {
	var summary models.ChangeSummary
	for _, rec := range records {
		prev, ok := stored[rec.ID]
		if !ok {
			summary.New++
			continue
		}

		changed := false
		if TitleTransferred(prev.Owner.FullName, rec.Owner.FullName) {
			summary.TitleTransfers++
			changed = true
		}
		if ValueChanged(prev.Financial.AssessedValue, rec.Financial.AssessedValue) {
			summary.ValueChanges++
			changed = true
		}
		if !changed {
			summary.Unchanged++
		}
	}
	return summary
}

// TitleTransferred reports a different owner name. A missing owner in the
// new data is not a transfer.
func TitleTransferred(previous, current string) bool {
	current = strings.TrimSpace(current)
	if current == "" || current == models.UnknownOwner {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(previous), current)
}

// ValueChanged reports an assessed value that moved by more than
// models.ValueChangeThreshold. A missing value in the new data is ignored.
func ValueChanged(previous, current float64) bool {
	return current > 0 && math.Abs(current-previous) > models.ValueChangeThreshold
}
