package opportunity

import (
	"math"
	"strings"
	"time"

	"github.com/legacy-compass/farm-ingest/internal/address"
	"github.com/legacy-compass/farm-ingest/internal/models"
)

const (
	// AnnualAppreciation is the compounding rate used to estimate current value.
	AnnualAppreciation = 1.05

	daysPerYear = 365.25
)

// Equity thresholds for status and tags.
const (
	HotEquity      = 70
	WarmEquity     = 40
	HighEquity     = 70
	ModerateEquity = 40
	PrimeEquity    = 60
	ReadyEquity    = 50
)

// Ownership duration thresholds, in whole years.
const (
	LongTermYears    = 10
	RecentYears      = 2
	ReadyToSellYears = 7
)

// Derive fills the derived financial, owner and activity fields of p from
// the extracted fields. now pins the clock used for years owned.
func Derive(p *models.CanonicalProperty, now time.Time) {
	f := &p.Financial
	f.YearsOwned = YearsOwned(f.PurchaseDate, now)
	f.EstimatedValue = EstimatedValue(f.PurchasePrice, f.YearsOwned, f.AssessedValue)
	f.EquityPercent = EquityPercent(f.EstimatedValue, f.PurchasePrice)
	f.EquityDollars = EquityDollars(f.EstimatedValue, f.PurchasePrice)

	p.Owner.IsAbsentee = IsAbsentee(p.Owner.OccupiedFlag, p.Owner.MailingAddress, p.Address.Street)
	if p.Owner.IsAbsentee {
		p.Owner.Classification = models.ClassAbsentee
	} else {
		p.Owner.Classification = models.ClassOwnerOccupied
	}

	p.Activity.Status = Status(f.EquityPercent)
	p.Activity.Tags = Tags(f.EquityPercent, p.Owner.IsAbsentee, f.YearsOwned)
}

// YearsOwned returns whole years between purchase and now, or 0 when the
// purchase date is unknown or in the future.
func YearsOwned(purchase *time.Time, now time.Time) int {
	if purchase == nil || purchase.IsZero() {
		return 0
	}
	// Unix seconds, since time.Duration saturates after about 292 years.
	days := float64(now.Unix()-purchase.Unix()) / 86400
	years := int(math.Floor(days / daysPerYear))
	if years < 0 {
		return 0
	}
	return years
}

// EstimatedValue compounds the purchase price by AnnualAppreciation per year
// owned. Without a purchase price it falls back to the assessed value.
func EstimatedValue(purchasePrice float64, yearsOwned int, assessedValue float64) float64 {
	if purchasePrice <= 0 {
		if assessedValue > 0 {
			return assessedValue
		}
		return 0
	}
	return purchasePrice * math.Pow(AnnualAppreciation, float64(yearsOwned))
}

// EquityPercent is the rounded share of estimated value above the purchase
// price, clamped to [0, 100].
func EquityPercent(estimatedValue, purchasePrice float64) int {
	if estimatedValue <= purchasePrice || estimatedValue <= 0 {
		return 0
	}
	equity := int(roundHalfUp((estimatedValue - purchasePrice) / estimatedValue * 100))
	if equity < 0 {
		return 0
	}
	if equity > 100 {
		return 100
	}
	return equity
}

// EquityDollars is the rounded difference between estimated value and purchase price.
func EquityDollars(estimatedValue, purchasePrice float64) float64 {
	return roundHalfUp(estimatedValue - purchasePrice)
}

// IsAbsentee reports an explicit non-occupant flag, or a mailing address that
// does not contain the site address.
func IsAbsentee(occupiedFlag, mailingAddress, siteAddress string) bool {
	if strings.EqualFold(strings.TrimSpace(occupiedFlag), "N") {
		return true
	}
	if strings.TrimSpace(mailingAddress) == "" {
		return false
	}
	return !address.Contains(mailingAddress, siteAddress)
}

// Status maps equity to the hot/warm/cold activity status.
func Status(equity int) string {
	switch {
	case equity > HotEquity:
		return models.StatusHot
	case equity > WarmEquity:
		return models.StatusWarm
	default:
		return models.StatusCold
	}
}

// Tags returns every tag rule that applies, in rule order.
func Tags(equity int, absentee bool, yearsOwned int) []string {
	tags := make([]string, 0, 4)
	if equity >= HighEquity {
		tags = append(tags, models.TagHighEquity)
	} else if equity >= ModerateEquity {
		tags = append(tags, models.TagModerateEquity)
	}
	if absentee {
		tags = append(tags, models.TagAbsentee)
	}
	if yearsOwned >= LongTermYears {
		tags = append(tags, models.TagLongTermOwner)
	}
	if yearsOwned <= RecentYears {
		tags = append(tags, models.TagRecentPurchase)
	}
	if equity >= PrimeEquity && absentee {
		tags = append(tags, models.TagPrimeTarget)
	}
	if yearsOwned >= ReadyToSellYears && equity >= ReadyEquity {
		tags = append(tags, models.TagReadyToSell)
	}
	return tags
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
