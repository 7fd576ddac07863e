package ingest

import (
	"math"
	"strconv"
)

const (
	// spiralAngleDeg is the golden angle step between successive offsets.
	spiralAngleDeg = 137.5
	// spiralRadiusDeg is the offset radius for the first collision, about 16m.
	spiralRadiusDeg = 0.00015
)

// CollisionResolver spreads records that share a coordinate bucket on a
// golden-angle spiral around the original point. It is scoped to one batch
// and is not safe for concurrent use.
type CollisionResolver struct {
	seen     map[string]int
	resolved int
}

// NewCollisionResolver returns an empty resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{seen: make(map[string]int)}
}

// BucketKey rounds both coordinates to 6 decimal places.
func BucketKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}

// Resolve returns the coordinates to use for a record arriving at lat/lng and
// whether they were moved. The n-th repeat of a bucket (n starting at 1) is
// placed at angle n*137.5 degrees and radius 0.00015*sqrt(n) degrees.
// An offset point that lands in a taken bucket is pushed further along the
// spiral, so resolved coordinates never share a bucket.
func (r *CollisionResolver) Resolve(lat, lng float64) (float64, float64, bool) {
	key := BucketKey(lat, lng)
	n, ok := r.seen[key]
	if !ok {
		r.seen[key] = 1
		return lat, lng, false
	}

	for {
		r.seen[key] = n + 1
		newLat, newLng := spiralOffset(lat, lng, n)
		placed := BucketKey(newLat, newLng)
		if _, taken := r.seen[placed]; !taken {
			r.seen[placed] = 1
			r.resolved++
			return newLat, newLng, true
		}
		n++
	}
}

// Resolved returns how many records were moved.
func (r *CollisionResolver) Resolved() int {
	return r.resolved
}

func spiralOffset(lat, lng float64, n int) (float64, float64) {
	angle := float64(n) * spiralAngleDeg * math.Pi / 180
	radius := spiralRadiusDeg * math.Sqrt(float64(n))
	return lat + radius*math.Sin(angle), lng + radius*math.Cos(angle)
}
