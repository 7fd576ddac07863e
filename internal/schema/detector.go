package schema

import "strings"

// NormalizeHeader lowercases a header and drops everything but a-z and 0-9.
// A leading UTF-8 byte order mark is dropped with the rest.
func NormalizeHeader(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectColumnRoles assigns roles to headers using the built-in patterns.
func DetectColumnRoles(headers []string) *ColumnRoleMap {
	return Defaults().Detect(headers)
}

// Detect assigns roles to headers. Pinned headers are assigned first; then
// each role, in priority order, takes the first unclaimed header matching one
// of its patterns. Later matches for an assigned role are ignored.
func (p *ResolvedPatterns) Detect(headers []string) *ColumnRoleMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	assignments := make(map[Role]int)
	claimed := make(map[int]bool)

	for i, h := range normalized {
		role, ok := p.pins[h]
		if !ok {
			continue
		}
		if _, taken := assignments[role]; taken {
			continue
		}
		assignments[role] = i
		claimed[i] = true
	}

	for _, role := range p.priority {
		if _, taken := assignments[role]; taken {
			continue
		}
		pattern, ok := p.patterns[role]
		if !ok {
			continue
		}
		for i, h := range normalized {
			if claimed[i] || h == "" {
				continue
			}
			if pattern.matches(h) {
				assignments[role] = i
				claimed[i] = true
				break
			}
		}
	}

	return NewColumnRoleMap(headers, assignments)
}
