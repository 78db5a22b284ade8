// Package privacy reduces personal data to forms safe for logs and audit rows.
package privacy

import "net/netip"

// Prefix lengths kept by AnonymizeIP.
const (
	ipv4Bits = 24
	ipv6Bits = 48
)

// AnonymizeIP keeps the network part of an address: the /24 for IPv4
// (IPv4-mapped IPv6 included) and the /48 for IPv6. Empty input or
// "unknown" gives "unknown"; anything unparseable gives "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")
	bits := ipv6Bits
	if addr.Is4() {
		bits = ipv4Bits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
