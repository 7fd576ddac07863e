package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

var (
	// ErrNoRoleMap is returned when a record is extracted before roles are known.
	ErrNoRoleMap = errors.New("ingest: no column role map")
	// ErrRoleIndexOutOfRange is returned when a role points past the row's cells.
	ErrRoleIndexOutOfRange = errors.New("ingest: role index out of range")
)

// row reads role-mapped cells of one tokenized line.
type row struct {
	cells   []string
	roles   *schema.ColumnRoleMap
	missing []string
}

func (r *row) text(role schema.Role) string {
	idx, ok := r.roles.Index(role)
	if !ok {
		return ""
	}
	return r.cells[idx]
}

func (r *row) markMissing(role schema.Role) {
	r.missing = append(r.missing, string(role))
}

func (r *row) int(role schema.Role, clean bool) int {
	s := r.text(role)
	if clean {
		s = cleanNumber(s)
	}
	v, ok := parseIntPrefix(s)
	if !ok {
		r.markMissing(role)
	}
	return v
}

func (r *row) float(role schema.Role, clean bool) float64 {
	v, ok := r.optionalFloat(role, clean)
	if !ok {
		r.markMissing(role)
	}
	return v
}

func (r *row) optionalFloat(role schema.Role, clean bool) (float64, bool) {
	s := r.text(role)
	if clean {
		s = cleanNumber(s)
	}
	return parseFloatPrefix(s)
}

// ExtractRecord maps one row of cells to a canonical property using roles.
// Derived fields and coordinate collisions are not handled here. rowIndex is
// the zero-based data line index and is used for the synthetic id, which is
// "<source>_<row>" or "<source>_<idScope>_<row>".
func ExtractRecord(cells []string, roles *schema.ColumnRoleMap, rowIndex int, sourceFile, idScope string) (models.CanonicalProperty, error) {
	if roles == nil {
		return models.CanonicalProperty{}, ErrNoRoleMap
	}
	for _, role := range roles.Roles() {
		if idx, _ := roles.Index(role); idx < 0 || idx >= len(cells) {
			return models.CanonicalProperty{}, fmt.Errorf("%w: %s -> column %d of %d", ErrRoleIndexOutOfRange, role, idx, len(cells))
		}
	}
	if sourceFile == "" {
		sourceFile = defaultSourceFile
	}

	r := &row{cells: cells, roles: roles}
	p := models.CanonicalProperty{
		SourceFile: sourceFile,
		RowIndex:   rowIndex,
	}

	p.ID = r.text(schema.RoleParcelID)
	if p.ID == "" {
		p.ID = syntheticID(sourceFile, idScope, rowIndex)
	}

	p.Address = extractAddress(r)
	p.Owner = extractOwner(r)

	p.Property = models.PropertyDetails{
		Bedrooms:   r.int(schema.RoleBedrooms, false),
		Bathrooms:  r.float(schema.RoleBathrooms, false),
		SquareFeet: r.int(schema.RoleSquareFeet, true),
		LotSize:    r.float(schema.RoleLotSize, true),
		YearBuilt:  r.int(schema.RoleYearBuilt, false),
		Type:       r.text(schema.RolePropertyType),
	}

	p.Financial.PurchasePrice = r.float(schema.RolePurchasePrice, true)
	if date, ok := parseDate(r.text(schema.RolePurchaseDate)); ok {
		p.Financial.PurchaseDate = date
	} else {
		r.markMissing(schema.RolePurchaseDate)
	}
	p.Financial.AssessedValue = extractAssessedValue(r)

	lat, latOK := parseCoordinate(r.text(schema.RoleLatitude), 90)
	lng, lngOK := parseCoordinate(r.text(schema.RoleLongitude), 180)
	if latOK && lngOK {
		p.Coordinates = models.Coordinates{Lat: &lat, Lng: &lng}
	} else {
		r.markMissing(schema.RoleLatitude)
		r.markMissing(schema.RoleLongitude)
	}

	p.Activity.Notes = r.text(schema.RoleNotes)
	p.MissingFields = r.missing
	return p, nil
}

func syntheticID(sourceFile, idScope string, rowIndex int) string {
	if idScope == "" {
		return sourceFile + "_" + strconv.Itoa(rowIndex)
	}
	return sourceFile + "_" + idScope + "_" + strconv.Itoa(rowIndex)
}

func extractAddress(r *row) models.Address {
	a := models.Address{
		Street: r.text(schema.RoleAddress),
		City:   r.text(schema.RoleCity),
		State:  r.text(schema.RoleState),
		Zip:    r.text(schema.RoleZip),
	}
	if a.Street == "" {
		a.Street = joinNonEmpty(" ",
			r.text(schema.RoleStreetNumber),
			r.text(schema.RoleStreetName),
			r.text(schema.RoleUnit),
		)
	}
	a.Full = joinNonEmpty(", ", a.Street, a.City, joinNonEmpty(" ", a.State, a.Zip))
	return a
}

func extractOwner(r *row) models.Owner {
	o := models.Owner{
		FirstName:      r.text(schema.RoleOwnerFirstName),
		LastName:       r.text(schema.RoleOwnerLastName),
		OccupiedFlag:   r.text(schema.RoleOwnerOccupied),
		MailingAddress: r.text(schema.RoleMailingAddress),
	}
	o.FullName = r.text(schema.RoleOwnerFullName)
	if o.FullName == "" {
		o.FullName = joinNonEmpty(" ", o.FirstName, o.LastName)
	}
	if o.FullName == "" {
		o.FullName = models.UnknownOwner
	}
	return o
}

// extractAssessedValue prefers an explicit assessed value and falls back to
// land plus improvements.
func extractAssessedValue(r *row) float64 {
	assessed, assessedOK := r.optionalFloat(schema.RoleAssessedValue, true)
	if assessedOK && assessed > 0 {
		return assessed
	}
	land, landOK := r.optionalFloat(schema.RoleLandValue, true)
	imps, impsOK := r.optionalFloat(schema.RoleImprovementValue, true)
	if landOK || impsOK {
		return land + imps
	}
	if !assessedOK {
		r.markMissing(schema.RoleAssessedValue)
	}
	return assessed
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
