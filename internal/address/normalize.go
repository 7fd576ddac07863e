package address

import "strings"

// replacements are applied in order to a padded, uppercased address.
var replacements = []struct{ old, new string }{
	{" STREET ", " ST "}, {" AVENUE ", " AVE "}, {" BOULEVARD ", " BLVD "},
	{" DRIVE ", " DR "}, {" ROAD ", " RD "}, {" LANE ", " LN "},
	{" PLACE ", " PL "}, {" COURT ", " CT "}, {" PARKWAY ", " PKWY "},
	{" CIRCLE ", " CIR "}, {" TERRACE ", " TER "}, {" TRAIL ", " TRL "},
	{" EAST ", " E "}, {" WEST ", " W "}, {" NORTH ", " N "}, {" SOUTH ", " S "},
	{" FIRST ", " 1ST "}, {" SECOND ", " 2ND "}, {" THIRD ", " 3RD "},
	{" FOURTH ", " 4TH "}, {" FIFTH ", " 5TH "}, {" SIXTH ", " 6TH "},
	{" SEVENTH ", " 7TH "}, {" EIGHTH ", " 8TH "}, {" NINTH ", " 9TH "},
	{" TENTH ", " 10TH "},
}

// Normalize uppercases an address, strips punctuation that varies between
// sources, collapses whitespace and standardizes street suffixes,
// directionals and spelled-out ordinals so two spellings of the same address
// compare equal.
func Normalize(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return ""
	}

	upper := strings.ToUpper(addr)
	upper = strings.NewReplacer(".", " ", ",", " ", "#", " # ").Replace(upper)
	padded := " " + strings.Join(strings.Fields(upper), " ") + " "

	for _, r := range replacements {
		for strings.Contains(padded, r.old) {
			padded = strings.ReplaceAll(padded, r.old, r.new)
		}
	}

	return strings.Join(strings.Fields(padded), " ")
}

// Contains reports whether the normalized form of haystack contains the
// normalized form of needle. An empty needle is always contained.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}
