package schema

import (
	"fmt"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// ValidateRoles checks a role map against the header line it will be applied to.
// Errors mean the map cannot be used with these headers at all; warnings
// describe data that will be missing from the resulting records.
func ValidateRoles(headers []string, roles *ColumnRoleMap) (warnings []string, errors []string) {
	if roles == nil {
		return nil, []string{"role map is nil"}
	}

	mapped := make(map[int]bool, roles.Len())
	for _, role := range roles.Roles() {
		idx, _ := roles.Index(role)
		if idx < 0 || idx >= len(headers) {
			errors = append(errors, fmt.Sprintf("role '%s' points at column %d but the file has %d columns", role, idx, len(headers)))
			continue
		}
		mapped[idx] = true
	}
	if len(errors) > 0 {
		return warnings, errors
	}

	if !roles.Has(RoleAddress) && !roles.Has(RoleStreetName) {
		warnings = append(warnings, "no site address column detected; records will have an empty address")
	}
	if !roles.HasCoordinates() {
		warnings = append(warnings, "no latitude/longitude columns detected; records need geocoding")
	}
	if !roles.Has(RoleOwnerFullName) && !(roles.Has(RoleOwnerFirstName) && roles.Has(RoleOwnerLastName)) {
		warnings = append(warnings, fmt.Sprintf("no owner name column detected; owners default to '%s'", models.UnknownOwner))
	}
	if !roles.Has(RoleParcelID) {
		warnings = append(warnings, "no parcel id column detected; ids are synthesized from source file and row")
	}

	for i, header := range headers {
		if mapped[i] || NormalizeHeader(header) == "" {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("column '%s' did not match any role and will be ignored", header))
	}

	return warnings, errors
}
