package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

func TestExtractRecord_SitusPartsComposeStreet(t *testing.T) {
	headers := []string{"APN", "SitusStreetNumber", "SitusStreetName", "SitusUnit", "SitusCity", "SitusZip", "OwnerName"}
	roles := schema.DetectColumnRoles(headers)

	p, err := ExtractRecord([]string{"123-45", "42", "ELM ST", "", "Mesa", "85201", "Jane Doe"}, roles, 3, "county.csv", "")

	require.NoError(t, err)
	assert.Equal(t, "123-45", p.ID)
	assert.Equal(t, "42 ELM ST", p.Address.Street)
	assert.Equal(t, "42 ELM ST, Mesa, 85201", p.Address.Full)
	assert.Equal(t, "Jane Doe", p.Owner.FullName)
	assert.Equal(t, 3, p.RowIndex)
}

func TestExtractRecord_OwnerFallbacks(t *testing.T) {
	roles := schema.DetectColumnRoles([]string{"Address", "Owner First Name", "Owner Last Name"})

	named, err := ExtractRecord([]string{"1 Main St", "Ann", "Lee"}, roles, 0, "f.csv", "")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", named.Owner.FullName)

	blank, err := ExtractRecord([]string{"1 Main St", "", ""}, roles, 1, "f.csv", "")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownOwner, blank.Owner.FullName)
}

func TestExtractRecord_SyntheticID(t *testing.T) {
	roles := schema.DetectColumnRoles([]string{"Address"})

	p, err := ExtractRecord([]string{"1 Main St"}, roles, 7, "", "")

	require.NoError(t, err)
	assert.Equal(t, defaultSourceFile+"_7", p.ID)
	assert.Equal(t, defaultSourceFile, p.SourceFile)
}

func TestExtractRecord_LandPlusImprovements(t *testing.T) {
	roles := schema.DetectColumnRoles([]string{"APN", "Land", "Imps"})

	p, err := ExtractRecord([]string{"1", "$100,000", "250,000"}, roles, 0, "f.csv", "")

	require.NoError(t, err)
	assert.Equal(t, 350000.0, p.Financial.AssessedValue)
	assert.NotContains(t, p.MissingFields, string(schema.RoleAssessedValue))
}

func TestExtractRecord_CoordinatesOutOfRange(t *testing.T) {
	roles := schema.DetectColumnRoles([]string{"APN", "Lat", "Lng"})

	p, err := ExtractRecord([]string{"1", "123.4", "-111.9"}, roles, 0, "f.csv", "")

	require.NoError(t, err)
	assert.Nil(t, p.Coordinates.Lat)
	assert.Nil(t, p.Coordinates.Lng)
	assert.Contains(t, p.MissingFields, string(schema.RoleLatitude))
}

func TestExtractRecord_ShortRow(t *testing.T) {
	roles := schema.DetectColumnRoles([]string{"APN", "Address", "City"})

	_, err := ExtractRecord([]string{"1", "1 Main St"}, roles, 0, "f.csv", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRoleIndexOutOfRange))
}
