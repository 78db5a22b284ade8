// Package email derives presentation defaults from an address.
package email

import (
	"strings"
	"unicode"
)

// DisplayNameFromEmail builds a readable name from the local part,
// e.g. "jane.doe+work@example.com" becomes "Jane Doe". Returns "User" when
// nothing usable is left.
func DisplayNameFromEmail(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		local = address[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return "User"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
