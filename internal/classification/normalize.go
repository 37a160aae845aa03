package classification

import "strings"

// NormalizeDescription repairs BOLT merchant names, whose city is exported as a
// separate token: every token but the last is joined with "/" and the last is
// re-attached after a space. Other descriptions are returned unchanged.
func NormalizeDescription(desc string) string {
	if !strings.Contains(desc, "BOLT") {
		return desc
	}
	parts := strings.Split(desc, " ")
	last := len(parts) - 1
	return strings.Join(parts[:last], "/") + " " + parts[last]
}
