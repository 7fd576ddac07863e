package opportunity

import (
	"sort"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// Hot list criteria.
const (
	HotListEquity = 60
	HotListYears  = 5
	HotListLimit  = 20
)

// HotOpportunities returns absentee owners with at least HotListEquity percent
// equity held for HotListYears or more, highest equity first, capped at
// HotListLimit. Ties keep input order. The input slice is not modified.
func HotOpportunities(records []models.CanonicalProperty) []models.CanonicalProperty {
	hot := make([]models.CanonicalProperty, 0)
	for _, r := range records {
		if r.Financial.EquityPercent >= HotListEquity && r.Owner.IsAbsentee && r.Financial.YearsOwned >= HotListYears {
			hot = append(hot, r)
		}
	}
	sort.SliceStable(hot, func(i, j int) bool {
		return hot[i].Financial.EquityPercent > hot[j].Financial.EquityPercent
	})
	if len(hot) > HotListLimit {
		hot = hot[:HotListLimit]
	}
	return hot
}
