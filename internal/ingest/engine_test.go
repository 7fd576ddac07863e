package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

var pinnedNow = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

const farmCSV = `APN,Address,City,State,Zip,Owner Name,Mailing Address,Owner Occupied,Bedrooms,Bathrooms,Square Feet,Last Sale Price,Last Sale Date,Latitude,Longitude
001-1,42 Oak Ave,Hayward,CA,94541,Jane Smith,"PO Box 7, Fremont CA",N,3,2,"1,450",$100000,2000-01-15,37.668800,-122.080800
001-2,44 Oak Ave,Hayward,CA,94541,Bob Lee,44 Oak Avenue,Y,4,2.5,1800,500000,2023-03-01,37.668800,-122.080800

001-3,bad row,with,too,few
001-4,50 Elm St,Hayward,CA,94541,,,,,,,,,,
`

func parse(t *testing.T, text string, opts Options) *Result {
	t.Helper()
	if opts.Now.IsZero() {
		opts.Now = pinnedNow
	}
	result, err := NewEngine(nil, 0).ParseBatch(text, nil, opts)
	require.NoError(t, err)
	return result
}

func TestParseBatch_FarmFile(t *testing.T) {
	result := parse(t, farmCSV, Options{SourceFile: "farm.csv", Tenant: "hayward"})

	require.Len(t, result.Records, 3)
	assert.True(t, result.HasCoordinates)
	assert.Equal(t, 4, result.TotalInBatch, "blank lines are not data lines")
	assert.Equal(t, 0, result.NextOffset)

	first := result.Records[0]
	assert.Equal(t, "001-1", first.ID)
	assert.Equal(t, "42 Oak Ave", first.Address.Street)
	assert.Equal(t, "42 Oak Ave, Hayward, CA 94541", first.Address.Full)
	assert.Equal(t, "Jane Smith", first.Owner.FullName)
	assert.Equal(t, "PO Box 7, Fremont CA", first.Owner.MailingAddress)
	assert.True(t, first.Owner.IsAbsentee)
	assert.Equal(t, 3, first.Property.Bedrooms)
	assert.Equal(t, 1450, first.Property.SquareFeet)
	assert.Equal(t, 100000.0, first.Financial.PurchasePrice)
	assert.Equal(t, 25, first.Financial.YearsOwned)
	assert.Equal(t, 70, first.Financial.EquityPercent)
	assert.Equal(t, models.StatusWarm, first.Activity.Status)
	assert.Equal(t, "hayward", first.Tenant)
	assert.Equal(t, "farm.csv", first.SourceFile)
	assert.False(t, first.CoordinatesAdjusted)
	assert.Equal(t, 37.6688, *first.Coordinates.Lat)

	second := result.Records[1]
	assert.False(t, second.Owner.IsAbsentee, "mailing address matches site address after normalization")
	assert.Equal(t, 2.5, second.Property.Bathrooms)
	assert.Equal(t, 1, second.Financial.YearsOwned)
	assert.Equal(t, 5, second.Financial.EquityPercent)
	assert.Equal(t, []string{"recent-purchase"}, second.Activity.Tags)
	assert.True(t, second.CoordinatesAdjusted)
	assert.InDelta(t, 37.668800+0.0001013, *second.Coordinates.Lat, 1e-6)
	assert.InDelta(t, -122.080800-0.0001106, *second.Coordinates.Lng, 1e-6)

	third := result.Records[2]
	assert.Equal(t, "001-4", third.ID)
	assert.Equal(t, 3, third.RowIndex)
	assert.Equal(t, models.UnknownOwner, third.Owner.FullName)
	assert.False(t, third.Coordinates.Valid())
	assert.Contains(t, third.MissingFields, "bedrooms")
	assert.Contains(t, third.MissingFields, "latitude")
	assert.Contains(t, third.MissingFields, "purchase_date")

	stats := result.Stats
	assert.Equal(t, 4, stats.TotalRows)
	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.CollisionsResolved)
	assert.Equal(t, 2, stats.WithCoordinates)
	assert.Equal(t, 1, stats.AbsenteeCount)
	assert.Equal(t, 2, stats.OwnerOccupiedCount)

	assert.True(t, containsFragment(result.Warnings, "1 of 4 rows rejected"))
}

func TestParseBatch_RowCountConservation(t *testing.T) {
	result := parse(t, farmCSV, Options{})

	assert.Equal(t, result.TotalInBatch, len(result.Records)+result.Stats.Rejected)
}

func TestParseBatch_Deterministic(t *testing.T) {
	first := parse(t, farmCSV, Options{SourceFile: "farm.csv"})
	second := parse(t, farmCSV, Options{SourceFile: "farm.csv"})

	assert.Equal(t, first, second)
}

func TestParseBatch_EquityInRange(t *testing.T) {
	for _, r := range parse(t, farmCSV, Options{}).Records {
		assert.GreaterOrEqual(t, r.Financial.EquityPercent, 0)
		assert.LessOrEqual(t, r.Financial.EquityPercent, 100)
	}
}

func TestParseBatch_Empty(t *testing.T) {
	for _, text := range []string{"", "\n\n", "APN,Address,Latitude,Longitude\n"} {
		result := parse(t, text, Options{})

		assert.Empty(t, result.Records, "input %q", text)
		assert.Equal(t, 0, result.Stats.TotalRows)
		assert.Equal(t, models.ImportStats{}, result.Stats)
		assert.Equal(t, 0, result.TotalInBatch)
	}
}

func TestParseBatch_LimitAndOffset(t *testing.T) {
	first := parse(t, farmCSV, Options{Limit: 2})

	assert.Len(t, first.Records, 2)
	assert.Equal(t, 4, first.TotalInBatch)
	assert.Equal(t, 2, first.NextOffset)
	assert.Equal(t, 2, first.Stats.TotalRows)

	rest := parse(t, farmCSV, Options{Limit: 2, Offset: first.NextOffset})

	require.Len(t, rest.Records, 1)
	assert.Equal(t, "001-4", rest.Records[0].ID)
	assert.Equal(t, 1, rest.Stats.Rejected)
	assert.Equal(t, 0, rest.NextOffset)

	past := parse(t, farmCSV, Options{Offset: 10})
	assert.Empty(t, past.Records)
	assert.Equal(t, 4, past.TotalInBatch)
}

func TestParseBatch_QuotedCommaInAddress(t *testing.T) {
	result := parse(t, "APN,Address,City\nA1,\"123 Main St, Apt 4\",Hayward\n", Options{})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "123 Main St, Apt 4", result.Records[0].Address.Street)
	assert.Equal(t, 0, result.Stats.Rejected)
}

func TestParseBatch_BOMAndCRLF(t *testing.T) {
	result := parse(t, "\ufeffAPN,Address\r\nA1,1 Main St\r\n", Options{})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "A1", result.Records[0].ID)
	assert.Equal(t, "1 Main St", result.Records[0].Address.Street)
}

func TestParseBatch_CountySchema(t *testing.T) {
	text := "APN,SitusStreetNumber,SitusStreetName,SitusUnit,SitusCity,SitusZip,OwnerName,MailingAddress,Land,Imps,CENTROID_X,CENTROID_Y\n" +
		"412-1,123,MAIN ST,B,HAYWARD,94541,DOE JOHN,123 MAIN ST B HAYWARD CA,150000,250000,-122.08,37.66\n" +
		"412-2,125,MAIN ST,,HAYWARD,94541,ROE JANE,,100000,0,0,0\n"

	result := parse(t, text, Options{})

	require.Len(t, result.Records, 2)
	first := result.Records[0]
	assert.Equal(t, "123 MAIN ST B", first.Address.Street)
	assert.Equal(t, 400000.0, first.Financial.AssessedValue)
	assert.Equal(t, 400000.0, first.Financial.EstimatedValue, "assessed value is used without a purchase price")
	assert.Equal(t, 37.66, *first.Coordinates.Lat)
	assert.Equal(t, -122.08, *first.Coordinates.Lng)
	assert.False(t, first.Owner.IsAbsentee)

	second := result.Records[1]
	assert.Equal(t, "125 MAIN ST", second.Address.Street)
	assert.False(t, second.Coordinates.Valid(), "zero centroids mean not geocoded")
	assert.Equal(t, 1, result.Stats.WithCoordinates)
}

func TestParseBatch_DuplicateParcelIDs(t *testing.T) {
	result := parse(t, "APN,Address\nX,1 Main\nX,2 Main\nY,3 Main\n", Options{})

	ids := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"X", "X_1", "Y"}, ids)
}

func TestParseBatch_SuffixedIDAlreadyTaken(t *testing.T) {
	result := parse(t, "APN,Address\nA_2,1 Main St\nA,2 Main St\nA,3 Main St\nA,4 Main St\n", Options{})

	ids := make([]string, 0, len(result.Records))
	seen := make(map[string]bool)
	for _, r := range result.Records {
		assert.False(t, seen[r.ID], "id %q appears twice", r.ID)
		seen[r.ID] = true
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"A_2", "A", "A_3", "A_4"}, ids)
}

func TestParseBatch_IDScopeSeparatesSameNamedFiles(t *testing.T) {
	first := parse(t, "Address\n1 Oak St\n", Options{SourceFile: "farm.csv", IDScope: "aaaa1111"})
	second := parse(t, "Address\n99 Elm Ave\n", Options{SourceFile: "farm.csv", IDScope: "bbbb2222"})

	assert.Equal(t, "farm.csv_aaaa1111_0", first.Records[0].ID)
	assert.Equal(t, "farm.csv_bbbb2222_0", second.Records[0].ID)

	withParcel := parse(t, "APN,Address\nP-1,1 Oak St\n", Options{SourceFile: "farm.csv", IDScope: "aaaa1111"})
	assert.Equal(t, "P-1", withParcel.Records[0].ID, "parcel ids are not scoped")
}

func TestParseBatch_SyntheticIDs(t *testing.T) {
	result := parse(t, "Address,City\n1 Main,Hayward\n2 Main,Hayward\n", Options{SourceFile: "farm.csv"})

	require.Len(t, result.Records, 2)
	assert.Equal(t, "farm.csv_0", result.Records[0].ID)
	assert.Equal(t, "farm.csv_1", result.Records[1].ID)
	assert.False(t, result.HasCoordinates)
	assert.True(t, containsFragment(result.Warnings, "geocoding"))

	unnamed := parse(t, "Address\n1 Main\n", Options{})
	assert.Equal(t, "import_0", unnamed.Records[0].ID)
}

func TestParseBatch_NoDuplicateBuckets(t *testing.T) {
	var b strings.Builder
	b.WriteString("APN,Lat,Lng\n")
	const n = 50
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "P%d,37.5,-122.1\n", i)
	}

	result := parse(t, b.String(), Options{})

	buckets := make(map[string]bool)
	for _, r := range result.Records {
		buckets[BucketKey(*r.Coordinates.Lat, *r.Coordinates.Lng)] = true
	}
	assert.Len(t, buckets, n)
	assert.Equal(t, n-1, result.Stats.CollisionsResolved)
}

func TestParseBatch_Progress(t *testing.T) {
	var b strings.Builder
	b.WriteString("APN,Address\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "P%d,%d Main St\n", i, i)
	}

	var updates []Progress
	parse(t, b.String(), Options{OnProgress: func(p Progress) { updates = append(updates, p) }})

	assert.Equal(t, []Progress{
		{Current: 100, Total: 250, Percent: 40},
		{Current: 200, Total: 250, Percent: 80},
		{Current: 250, Total: 250, Percent: 100},
	}, updates)

	updates = nil
	parse(t, b.String(), Options{ProgressEvery: 125, OnProgress: func(p Progress) { updates = append(updates, p) }})
	assert.Len(t, updates, 2)
}

func TestParseBatch_InjectedRoleMap(t *testing.T) {
	text := "Folio,Location\nF1,9 Pine Ct\n"
	roles := schema.NewColumnRoleMap([]string{"Folio", "Location"}, map[schema.Role]int{
		schema.RoleParcelID: 0,
		schema.RoleAddress:  1,
	})

	result, err := NewEngine(nil, 0).ParseBatch(text, roles, Options{Now: pinnedNow})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "F1", result.Records[0].ID)
	assert.Equal(t, "9 Pine Ct", result.Records[0].Address.Street)
}

func TestParseBatch_RoleMapOutOfRange(t *testing.T) {
	roles := schema.NewColumnRoleMap([]string{"APN"}, map[schema.Role]int{schema.RoleAddress: 4})

	result, err := NewEngine(nil, 0).ParseBatch("APN,Address\nA1,1 Main\n", roles, Options{})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrRoleIndexOutOfRange))
	assert.True(t, IsEngineError(err))
}

func TestParseBatch_TenantPatterns(t *testing.T) {
	patterns, err := schema.Resolve(nil, []byte(`{"pins": {"Situs Line": "address"}}`))
	require.NoError(t, err)

	result, err := NewEngine(patterns, 0).ParseBatch("Address,Situs Line\nwrong,7 Bay Rd\n", nil, Options{})

	require.NoError(t, err)
	assert.Equal(t, "7 Bay Rd", result.Records[0].Address.Street)
}

func TestParseReader(t *testing.T) {
	result, err := NewEngine(nil, 0).ParseReader(strings.NewReader(farmCSV), nil, Options{Now: pinnedNow})

	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
}

func TestExtractRecord_NoRoleMap(t *testing.T) {
	_, err := ExtractRecord([]string{"a"}, nil, 0, "", "")

	assert.ErrorIs(t, err, ErrNoRoleMap)
}

func TestExtractRecord_MalformedNumbersDefault(t *testing.T) {
	headers := []string{"Beds", "Baths", "Sale Price"}
	roles := schema.DetectColumnRoles(headers)

	p, err := ExtractRecord([]string{"three", "2.5 full", "call"}, roles, 0, "f.csv", "")

	require.NoError(t, err)
	assert.Equal(t, 0, p.Property.Bedrooms)
	assert.Equal(t, 2.5, p.Property.Bathrooms)
	assert.Equal(t, 0.0, p.Financial.PurchasePrice)
	assert.Contains(t, p.MissingFields, "bedrooms")
	assert.Contains(t, p.MissingFields, "purchase_price")
	assert.NotContains(t, p.MissingFields, "bathrooms")
}

func containsFragment(items []string, fragment string) bool {
	for _, s := range items {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
