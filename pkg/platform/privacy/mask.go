package privacy

import "strings"

// MaskContact hides most of an email address or phone number for logs:
// "alice@example.com" becomes "a***@example.com", "+15551234567" becomes "***4567".
func MaskContact(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if at := strings.LastIndexByte(v, '@'); at > 0 {
		return v[:1] + "***" + v[at:]
	}
	if len(v) <= 4 {
		return "***"
	}
	return "***" + v[len(v)-4:]
}
