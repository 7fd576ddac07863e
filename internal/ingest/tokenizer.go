package ingest

import "strings"

// ParseLine splits one CSV line on commas. A double quote toggles quoted mode
// and commas inside quotes do not split. Escaped quotes ("") are not
// supported. Cells are trimmed, and a cell that is quoted as a whole loses
// its surrounding quotes.
func ParseLine(line string) []string {
	cells := make([]string, 0, 16)
	var cell strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cell.WriteByte(c)
		case c == ',' && !inQuotes:
			cells = append(cells, cleanCell(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(c)
		}
	}
	cells = append(cells, cleanCell(cell.String()))
	return cells
}

func cleanCell(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.Count(s, `"`) == 2 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// splitLines splits text on \n, dropping a trailing \r from each line.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
