package schema

import "encoding/json"

// DefaultConfigVersion labels the built-in patterns when they are seeded.
const DefaultConfigVersion = "builtin-v1"

// defaultPriority is the order in which roles claim headers. Owner, mailing and
// lot roles come before the generic address and area roles so a header like
// "Owner Mailing Address" or "Lot SqFt" is not taken by the broader pattern.
var defaultPriority = []Role{
	RoleParcelID,
	RoleLatitude,
	RoleLongitude,
	RoleMailingAddress,
	RoleOwnerOccupied,
	RoleOwnerFirstName,
	RoleOwnerLastName,
	RoleOwnerFullName,
	RoleStreetNumber,
	RoleStreetName,
	RoleUnit,
	RoleAddress,
	RoleCity,
	RoleState,
	RoleZip,
	RoleLotSize,
	RoleSquareFeet,
	RoleBedrooms,
	RoleBathrooms,
	RoleYearBuilt,
	RolePropertyType,
	RolePurchasePrice,
	RolePurchaseDate,
	RoleAssessedValue,
	RoleLandValue,
	RoleImprovementValue,
	RoleNotes,
}

// Patterns are matched against the normalized header (lowercase, only a-z0-9).
var defaultPatterns = map[Role]RolePattern{
	RoleParcelID: {Match: []string{
		`^apn$`, `^apnnumber$`, `^parcel(id|number|num|no)?$`, `^assessorsparcel(number)?$`,
		`^pin$`, `^accountnum(ber)?$`, `^propertyid$`,
	}},
	RoleLatitude: {Match: []string{
		`^lat$`, `latitude`, `^centroidy$`, `^y$`, `^ycoord(inate)?$`,
	}},
	RoleLongitude: {Match: []string{
		`^lng$`, `^lon$`, `^long$`, `longitude`, `^centroidx$`, `^x$`, `^xcoord(inate)?$`,
	}},
	RoleMailingAddress: {Match: []string{
		`^(owner)?mail(ing)?(street)?(address|addr)`, `^owner(street)?(address|addr)$`,
		`^mailingstreet$`,
	}},
	RoleOwnerOccupied: {Match: []string{
		`owneroccupied`, `owneroccupancy`, `^ownerocc$`, `^occupied$`, `^homestead`,
	}},
	RoleOwnerFirstName: {Match: []string{
		`firstname`, `^(owner)?first$`, `^fname$`,
	}},
	RoleOwnerLastName: {Match: []string{
		`lastname`, `^(owner)?last$`, `^lname$`, `surname`,
	}},
	RoleOwnerFullName: {Match: []string{
		`^owners?(full)?name\d?$`, `^owner\d?$`, `^fullname$`, `^name$`, `^taxpayer(name)?$`,
	}},
	RoleStreetNumber: {Match: []string{
		`^(situs|site)?(street|st|house)(number|num|no)$`,
	}},
	RoleStreetName: {Match: []string{
		`^(situs|site)?streetname$`,
	}},
	RoleUnit: {Match: []string{
		`^(situs|site)?unit(number|num|no)?$`, `^apt$`,
	}},
	RoleAddress: {
		Match: []string{
			`^(situs|site|property|prop)?(street)?(full)?(address|addr)\d?$`,
			`^situs$`, `^street$`, `address`,
		},
		Exclude: []string{`mail`, `owner`},
	},
	RoleCity: {Match: []string{
		`^(situs|site|property|prop)?city$`, `^town$`, `^municipality$`,
	}},
	RoleState: {Match: []string{
		`^(situs|site|property|prop)?state$`, `^province$`,
	}},
	RoleZip: {Match: []string{
		`^(situs|site|property|prop)?(zip|zipcode|zip5|postalcode|postcode)$`,
	}},
	RoleLotSize: {Match: []string{
		`lotsize`, `lotsqft`, `lotarea`, `lotacres`, `^(land)?(acres|acreage)$`, `^landsqft$`,
	}},
	RoleSquareFeet: {Match: []string{
		`sqft`, `squarefe?e?t`, `livingarea`, `buildingarea`, `^(living|building|bldg)?(sq|sf)$`, `^gla$`,
	}},
	RoleBedrooms: {Match: []string{
		`^(num|no|total)?bed(room)?s?(count)?$`, `^br$`, `^bdrms?$`,
	}},
	RoleBathrooms: {Match: []string{
		`^(num|no|total)?bath(room)?s?(count)?$`, `^ba$`, `^fullbaths?$`,
	}},
	RoleYearBuilt: {Match: []string{
		`yearbuilt`, `^yrbuilt$`, `^built$`, `yearconstructed`,
	}},
	RolePropertyType: {Match: []string{
		`propertytype`, `proptype`, `propertyclass`, `^(use|landuse)(code|description|desc)?$`,
		`^buildingtype$`, `^type$`,
	}},
	RolePurchasePrice: {Match: []string{
		`(sale|sales|sold|purchase)(price|amount|amt)`, `^price$`,
	}},
	RolePurchaseDate: {Match: []string{
		`(sale|sales|sold|purchase|recording|deed)(date|dt)`, `^(date)?(sold|purchased|acquired)$`,
	}},
	RoleAssessedValue: {Match: []string{
		`(assessed|total|market|appraised|taxable|estimated)(value|val)`, `^value$`, `^avm$`,
	}},
	RoleLandValue: {Match: []string{
		`^land(value|val)?$`,
	}},
	RoleImprovementValue: {Match: []string{
		`^(imps|improvements?)(value|val)?$`,
	}},
	RoleNotes: {Match: []string{
		`^notes?$`, `^comments?$`, `^remarks$`,
	}},
}

// DefaultConfig returns the built-in global role configuration.
func DefaultConfig() GlobalRoleConfig {
	roles := make(map[Role]RolePattern, len(defaultPatterns))
	for role, p := range defaultPatterns {
		roles[role] = RolePattern{
			Match:   append([]string(nil), p.Match...),
			Exclude: append([]string(nil), p.Exclude...),
		}
	}
	return GlobalRoleConfig{
		Priority: append([]Role(nil), defaultPriority...),
		Roles:    roles,
	}
}

// DefaultConfigJSON returns DefaultConfig encoded as JSON, the form stored in role_configs.
func DefaultConfigJSON() json.RawMessage {
	b, _ := json.Marshal(DefaultConfig())
	return b
}

var defaultResolved = mustResolveDefault()

func mustResolveDefault() *ResolvedPatterns {
	resolved, err := resolveConfig(DefaultConfig(), nil)
	if err != nil {
		panic("schema: invalid built-in role patterns: " + err.Error())
	}
	return resolved
}

// Defaults returns the compiled built-in patterns.
func Defaults() *ResolvedPatterns {
	return defaultResolved
}
