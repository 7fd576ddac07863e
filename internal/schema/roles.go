package schema

import (
	"encoding/json"
	"sort"
)

// Role is the semantic meaning of a CSV column.
type Role string

const (
	RoleParcelID         Role = "parcel_id"
	RoleAddress          Role = "address"
	RoleStreetNumber     Role = "street_number"
	RoleStreetName       Role = "street_name"
	RoleUnit             Role = "unit"
	RoleCity             Role = "city"
	RoleState            Role = "state"
	RoleZip              Role = "zip"
	RoleOwnerFirstName   Role = "owner_first_name"
	RoleOwnerLastName    Role = "owner_last_name"
	RoleOwnerFullName    Role = "owner_full_name"
	RoleMailingAddress   Role = "mailing_address"
	RoleOwnerOccupied    Role = "owner_occupied"
	RoleBedrooms         Role = "bedrooms"
	RoleBathrooms        Role = "bathrooms"
	RoleSquareFeet       Role = "square_feet"
	RoleLotSize          Role = "lot_size"
	RoleYearBuilt        Role = "year_built"
	RolePropertyType     Role = "property_type"
	RolePurchasePrice    Role = "purchase_price"
	RolePurchaseDate     Role = "purchase_date"
	RoleAssessedValue    Role = "assessed_value"
	RoleLandValue        Role = "land_value"
	RoleImprovementValue Role = "improvement_value"
	RoleLatitude         Role = "latitude"
	RoleLongitude        Role = "longitude"
	RoleNotes            Role = "notes"
)

// knownRoles is the closed set of roles a pattern config may reference.
var knownRoles = map[Role]bool{
	RoleParcelID: true, RoleAddress: true, RoleStreetNumber: true, RoleStreetName: true,
	RoleUnit: true, RoleCity: true, RoleState: true, RoleZip: true,
	RoleOwnerFirstName: true, RoleOwnerLastName: true, RoleOwnerFullName: true,
	RoleMailingAddress: true, RoleOwnerOccupied: true, RoleBedrooms: true,
	RoleBathrooms: true, RoleSquareFeet: true, RoleLotSize: true, RoleYearBuilt: true,
	RolePropertyType: true, RolePurchasePrice: true, RolePurchaseDate: true,
	RoleAssessedValue: true, RoleLandValue: true, RoleImprovementValue: true,
	RoleLatitude: true, RoleLongitude: true, RoleNotes: true,
}

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	return knownRoles[r]
}

// ColumnRoleMap assigns at most one header index to each role. It is built
// once per import and never modified afterwards.
type ColumnRoleMap struct {
	headers []string
	index   map[Role]int
}

// NewColumnRoleMap builds a role map from explicit assignments, for callers
// that want to inject a mapping instead of detecting one.
func NewColumnRoleMap(headers []string, assignments map[Role]int) *ColumnRoleMap {
	m := &ColumnRoleMap{
		headers: append([]string(nil), headers...),
		index:   make(map[Role]int, len(assignments)),
	}
	for role, idx := range assignments {
		m.index[role] = idx
	}
	return m
}

// Index returns the column assigned to role.
func (m *ColumnRoleMap) Index(role Role) (int, bool) {
	if m == nil {
		return 0, false
	}
	idx, ok := m.index[role]
	return idx, ok
}

// Has reports whether role was assigned a column.
func (m *ColumnRoleMap) Has(role Role) bool {
	_, ok := m.Index(role)
	return ok
}

// HasCoordinates reports whether both latitude and longitude were detected.
func (m *ColumnRoleMap) HasCoordinates() bool {
	return m.Has(RoleLatitude) && m.Has(RoleLongitude)
}

// Headers returns the header list the map was built from.
func (m *ColumnRoleMap) Headers() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.headers...)
}

// Len returns the number of assigned roles.
func (m *ColumnRoleMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.index)
}

// Assignments returns a copy of the role to column index mapping.
func (m *ColumnRoleMap) Assignments() map[Role]int {
	out := make(map[Role]int, m.Len())
	if m == nil {
		return out
	}
	for role, idx := range m.index {
		out[role] = idx
	}
	return out
}

// Roles returns the assigned roles sorted by column index.
func (m *ColumnRoleMap) Roles() []Role {
	roles := make([]Role, 0, m.Len())
	if m == nil {
		return roles
	}
	for role := range m.index {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		return m.index[roles[i]] < m.index[roles[j]]
	})
	return roles
}

// MarshalJSON renders the map as role -> header name.
func (m *ColumnRoleMap) MarshalJSON() ([]byte, error) {
	out := make(map[Role]string, m.Len())
	if m != nil {
		for role, idx := range m.index {
			if idx >= 0 && idx < len(m.headers) {
				out[role] = m.headers[idx]
			}
		}
	}
	return json.Marshal(out)
}
