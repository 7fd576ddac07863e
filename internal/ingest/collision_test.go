package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketKey(t *testing.T) {
	assert.Equal(t, "37.668800,-122.080800", BucketKey(37.6688, -122.0808))
	assert.Equal(t, BucketKey(37.6688001, -122.0808), BucketKey(37.6688, -122.0808))
}

func TestCollisionResolver_SpiralExample(t *testing.T) {
	r := NewCollisionResolver()

	lat1, lng1, moved1 := r.Resolve(37.668800, -122.080800)
	lat2, lng2, moved2 := r.Resolve(37.668800, -122.080800)

	assert.False(t, moved1)
	assert.Equal(t, 37.6688, lat1)
	assert.Equal(t, -122.0808, lng1)

	assert.True(t, moved2)
	assert.InDelta(t, 37.668800+0.000101339, lat2, 1e-6)
	assert.InDelta(t, -122.080800-0.000110592, lng2, 1e-6)
	assert.Equal(t, 1, r.Resolved())
}

func TestCollisionResolver_DistinctBuckets(t *testing.T) {
	r := NewCollisionResolver()
	buckets := make(map[string]bool)

	const n = 200
	for i := 0; i < n; i++ {
		lat, lng, _ := r.Resolve(37.5, -122.1)
		buckets[BucketKey(lat, lng)] = true
	}

	assert.Len(t, buckets, n, "every resolved point gets its own bucket")
	assert.Equal(t, n-1, r.Resolved())
}

func TestCollisionResolver_Deterministic(t *testing.T) {
	points := [][2]float64{{37.1, -122.1}, {37.1, -122.1}, {37.2, -122.2}, {37.1, -122.1}}

	run := func() [][2]float64 {
		r := NewCollisionResolver()
		out := make([][2]float64, 0, len(points))
		for _, p := range points {
			lat, lng, _ := r.Resolve(p[0], p[1])
			out = append(out, [2]float64{lat, lng})
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestCollisionResolver_IndependentInstances(t *testing.T) {
	a := NewCollisionResolver()
	b := NewCollisionResolver()

	a.Resolve(37.1, -122.1)
	_, _, moved := b.Resolve(37.1, -122.1)

	assert.False(t, moved, "resolvers share no state")
}
