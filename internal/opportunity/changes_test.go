package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

func TestCountChanges(t *testing.T) {
	stored := map[string]models.CanonicalProperty{
		"P1": {ID: "P1", Owner: models.Owner{FullName: "Ann Lee"}, Financial: models.Financial{AssessedValue: 200000}},
		"P2": {ID: "P2", Owner: models.Owner{FullName: "Ben Ray"}, Financial: models.Financial{AssessedValue: 200000}},
		"P3": {ID: "P3", Owner: models.Owner{FullName: "Cy Park"}, Financial: models.Financial{AssessedValue: 300000}},
	}
	records := []models.CanonicalProperty{
		{ID: "P1", Owner: models.Owner{FullName: "Dana Cole"}, Financial: models.Financial{AssessedValue: 250000}},
		{ID: "P2", Owner: models.Owner{FullName: "Ben Ray"}, Financial: models.Financial{AssessedValue: 200500}},
		{ID: "P3", Owner: models.Owner{FullName: "Cy Park"}, Financial: models.Financial{AssessedValue: 310000}},
		{ID: "P4", Owner: models.Owner{FullName: "Eve Moss"}},
	}

	summary := CountChanges(stored, records)

	assert.Equal(t, models.ChangeSummary{New: 1, TitleTransfers: 1, ValueChanges: 2, Unchanged: 1}, summary)
}

func TestCountChanges_NothingStored(t *testing.T) {
	summary := CountChanges(nil, []models.CanonicalProperty{{ID: "a"}, {ID: "b"}})

	assert.Equal(t, models.ChangeSummary{New: 2}, summary)
}

func TestTitleTransferred(t *testing.T) {
	assert.True(t, TitleTransferred("Ann Lee", "Dana Cole"))
	assert.False(t, TitleTransferred("Ann Lee", "ann lee "), "case and spacing are not transfers")
	assert.False(t, TitleTransferred("Ann Lee", ""))
	assert.False(t, TitleTransferred("Ann Lee", models.UnknownOwner))
}

func TestValueChanged(t *testing.T) {
	assert.True(t, ValueChanged(200000, 201001))
	assert.True(t, ValueChanged(200000, 150000))
	assert.False(t, ValueChanged(200000, 201000), "exactly the threshold is not a change")
	assert.False(t, ValueChanged(200000, 0), "missing new value")
}
