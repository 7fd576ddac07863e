package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

func sampleProperty() models.CanonicalProperty {
	lat, lng := 37.6688, -122.0808
	bought := time.Date(2000, 1, 15, 0, 0, 0, 0, time.UTC)
	return models.CanonicalProperty{
		ID:          "001-1",
		Address:     models.Address{Street: "42 Oak Ave", City: "Hayward", State: "CA", Zip: "94541"},
		Coordinates: models.Coordinates{Lat: &lat, Lng: &lng},
		Owner:       models.Owner{FullName: "Smith, Jane", Classification: models.ClassAbsentee, IsAbsentee: true},
		Financial: models.Financial{
			PurchasePrice: 100000,
			PurchaseDate:  &bought,
			YearsOwned:    25,
			EquityPercent: 70,
		},
		Activity:   models.Activity{Status: models.StatusWarm, Tags: []string{"high-equity", "absentee"}},
		SourceFile: "farm.csv",
	}
}

func TestWriteCSV(t *testing.T) {
	noCoords := models.CanonicalProperty{ID: "farm.csv_1", Owner: models.Owner{FullName: models.UnknownOwner}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.CanonicalProperty{sampleProperty(), noCoords}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,street,city,state,zip,latitude,longitude,owner_name"))
	assert.Contains(t, lines[1], `"Smith, Jane"`)
	assert.Contains(t, lines[1], "2000-01-15")
	assert.Contains(t, lines[1], "high-equity;absentee")
	assert.True(t, strings.HasPrefix(lines[2], "farm.csv_1,,,,,,,"), "nil coordinates are empty cells")
}

func TestWriteCSV_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.True(t, strings.HasPrefix(buf.String(), "id,street,"))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestReadCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.CanonicalProperty{sampleProperty()}))

	rows, err := ReadCSV(&buf)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Flatten(sampleProperty()), rows[0])
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadRecords_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.CanonicalProperty{sampleProperty()}))

	records, err := ReadRecords(&buf)

	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	want := sampleProperty()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Address.Street, got.Address.Street)
	assert.Equal(t, want.Owner.FullName, got.Owner.FullName)
	assert.True(t, got.Owner.IsAbsentee)
	assert.Equal(t, want.Financial.PurchaseDate, got.Financial.PurchaseDate)
	assert.Equal(t, want.Activity.Tags, got.Activity.Tags)
	assert.Equal(t, *want.Coordinates.Lat, *got.Coordinates.Lat)
}

func TestUnflatten_EmptyOptionalFields(t *testing.T) {
	p := Unflatten(Row{ID: "x"})

	assert.Nil(t, p.Financial.PurchaseDate)
	assert.Nil(t, p.Coordinates.Lat)
	assert.Empty(t, p.Activity.Tags)
}
