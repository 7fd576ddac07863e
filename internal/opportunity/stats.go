package opportunity

import "github.com/legacy-compass/farm-ingest/internal/models"

// ComputeStats aggregates a record set. Row-level counters (total, rejected,
// collisions) are owned by the parser and left at the record count and zero.
func ComputeStats(records []models.CanonicalProperty) models.ImportStats {
	stats := models.ImportStats{
		TotalRows: len(records),
		Parsed:    len(records),
	}
	if len(records) == 0 {
		return stats
	}

	var equitySum, yearsSum int
	for i := range records {
		r := &records[i]
		if r.Coordinates.Valid() {
			stats.WithCoordinates++
		}
		if r.Owner.IsAbsentee {
			stats.AbsenteeCount++
		} else {
			stats.OwnerOccupiedCount++
		}
		if r.Financial.EquityPercent >= HighEquity {
			stats.HighEquityCount++
		}
		switch r.Activity.Status {
		case models.StatusHot:
			stats.HotCount++
		case models.StatusWarm:
			stats.WarmCount++
		default:
			stats.ColdCount++
		}
		equitySum += r.Financial.EquityPercent
		yearsSum += r.Financial.YearsOwned
		stats.TotalEquityDollars += r.Financial.EquityDollars
	}

	n := float64(len(records))
	stats.AbsenteePercent = roundTo(float64(stats.AbsenteeCount)/n*100, 1)
	stats.AverageEquity = roundTo(float64(equitySum)/n, 1)
	stats.AverageYearsOwned = roundTo(float64(yearsSum)/n, 1)
	return stats
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return roundHalfUp(v*scale) / scale
}
