// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// SplitList splits a comma separated setting into its trimmed, non-empty,
// distinct elements in order of first appearance. Blank input yields nil.
func SplitList(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
