package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// Row is one canonical property flattened for spreadsheet use.
type Row struct {
	ID               string   `csv:"id"`
	Street           string   `csv:"street"`
	City             string   `csv:"city"`
	State            string   `csv:"state"`
	Zip              string   `csv:"zip"`
	Latitude         *float64 `csv:"latitude"`
	Longitude        *float64 `csv:"longitude"`
	OwnerName        string   `csv:"owner_name"`
	MailingAddress   string   `csv:"mailing_address"`
	Classification   string   `csv:"owner_classification"`
	Bedrooms         int      `csv:"bedrooms"`
	Bathrooms        float64  `csv:"bathrooms"`
	SquareFeet       int      `csv:"square_feet"`
	LotSize          float64  `csv:"lot_size"`
	YearBuilt        int      `csv:"year_built"`
	PropertyType     string   `csv:"property_type"`
	PurchasePrice    float64  `csv:"purchase_price"`
	PurchaseDate     string   `csv:"purchase_date"`
	YearsOwned       int      `csv:"years_owned"`
	AssessedValue    float64  `csv:"assessed_value"`
	EstimatedValue   float64  `csv:"estimated_value"`
	EquityPercent    int      `csv:"equity_percent"`
	EquityDollars    float64  `csv:"equity_dollars"`
	Status           string   `csv:"status"`
	Tags             string   `csv:"tags"`
	Notes            string   `csv:"notes"`
	SourceFile       string   `csv:"source_file"`
	RowIndex         int      `csv:"row_index"`
	CoordinatesMoved bool     `csv:"coordinates_adjusted"`
}

// TagSeparator joins tags in the tags column.
const TagSeparator = ";"

// Flatten converts a canonical property to an export row.
func Flatten(p models.CanonicalProperty) Row {
	row := Row{
		ID:               p.ID,
		Street:           p.Address.Street,
		City:             p.Address.City,
		State:            p.Address.State,
		Zip:              p.Address.Zip,
		Latitude:         p.Coordinates.Lat,
		Longitude:        p.Coordinates.Lng,
		OwnerName:        p.Owner.FullName,
		MailingAddress:   p.Owner.MailingAddress,
		Classification:   p.Owner.Classification,
		Bedrooms:         p.Property.Bedrooms,
		Bathrooms:        p.Property.Bathrooms,
		SquareFeet:       p.Property.SquareFeet,
		LotSize:          p.Property.LotSize,
		YearBuilt:        p.Property.YearBuilt,
		PropertyType:     p.Property.Type,
		PurchasePrice:    p.Financial.PurchasePrice,
		YearsOwned:       p.Financial.YearsOwned,
		AssessedValue:    p.Financial.AssessedValue,
		EstimatedValue:   p.Financial.EstimatedValue,
		EquityPercent:    p.Financial.EquityPercent,
		EquityDollars:    p.Financial.EquityDollars,
		Status:           p.Activity.Status,
		Tags:             strings.Join(p.Activity.Tags, TagSeparator),
		Notes:            p.Activity.Notes,
		SourceFile:       p.SourceFile,
		RowIndex:         p.RowIndex,
		CoordinatesMoved: p.CoordinatesAdjusted,
	}
	if p.Financial.PurchaseDate != nil {
		row.PurchaseDate = p.Financial.PurchaseDate.Format("2006-01-02")
	}
	return row
}

// Unflatten rebuilds the canonical fields an export row carries. Fields the
// row does not hold, such as owner first and last names, stay empty.
func Unflatten(row Row) models.CanonicalProperty {
	p := models.CanonicalProperty{
		ID:          row.ID,
		Address:     models.Address{Street: row.Street, City: row.City, State: row.State, Zip: row.Zip},
		Coordinates: models.Coordinates{Lat: row.Latitude, Lng: row.Longitude},
		Owner: models.Owner{
			FullName:       row.OwnerName,
			MailingAddress: row.MailingAddress,
			Classification: row.Classification,
			IsAbsentee:     row.Classification == models.ClassAbsentee,
		},
		Property: models.PropertyDetails{
			Bedrooms:   row.Bedrooms,
			Bathrooms:  row.Bathrooms,
			SquareFeet: row.SquareFeet,
			LotSize:    row.LotSize,
			YearBuilt:  row.YearBuilt,
			Type:       row.PropertyType,
		},
		Financial: models.Financial{
			PurchasePrice:  row.PurchasePrice,
			YearsOwned:     row.YearsOwned,
			AssessedValue:  row.AssessedValue,
			EstimatedValue: row.EstimatedValue,
			EquityPercent:  row.EquityPercent,
			EquityDollars:  row.EquityDollars,
		},
		Activity:            models.Activity{Status: row.Status, Notes: row.Notes, Tags: []string{}},
		SourceFile:          row.SourceFile,
		RowIndex:            row.RowIndex,
		CoordinatesAdjusted: row.CoordinatesMoved,
	}
	if row.Tags != "" {
		p.Activity.Tags = strings.Split(row.Tags, TagSeparator)
	}
	if d, err := time.Parse("2006-01-02", row.PurchaseDate); err == nil {
		p.Financial.PurchaseDate = &d
	}
	return p
}

// WriteCSV writes records as CSV with a header line. An empty record set
// still produces the header.
func WriteCSV(w io.Writer, records []models.CanonicalProperty) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(records) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	for i := range records {
		if err := enc.Encode(Flatten(records[i])); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", records[i].ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadRecords decodes a file written by WriteCSV back into canonical records.
func ReadRecords(r io.Reader) ([]models.CanonicalProperty, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	records := make([]models.CanonicalProperty, 0, len(rows))
	for _, row := range rows {
		records = append(records, Unflatten(row))
	}
	return records, nil
}

// ReadCSV decodes rows previously written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return []Row{}, nil
		}
		return nil, fmt.Errorf("failed to create csv decoder: %w", err)
	}

	rows := make([]Row, 0)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	return rows, nil
}
