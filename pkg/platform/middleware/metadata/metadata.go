// Package metadata records who is calling: client IP, User-Agent and an
// optional geo hint. Forwarding headers are honored only from trusted proxies.
package metadata

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"warden/pkg/requestcontext"
)

// MaxForwardedLength bounds X-Forwarded-For and X-Real-IP; longer values are ignored.
const MaxForwardedLength = 500

// DefaultGeoHeader is the header an edge proxy sets with a country hint.
const DefaultGeoHeader = "X-Geo-Country"

const maxGeoLength = 64

// Config lists the proxies whose forwarding headers are believed. With no
// trusted proxies the peer address is always the client.
type Config struct {
	TrustedProxies []netip.Prefix
	GeoHeader      string
}

// ParseTrustedProxies accepts CIDRs and bare addresses. Blank entries are skipped.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		prefix, err := parsePrefix(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		out = append(out, prefix)
	}
	return out, nil
}

func parsePrefix(v string) (netip.Prefix, error) {
	if strings.Contains(v, "/") {
		return netip.ParsePrefix(v)
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Middleware stores a requestcontext.Client for every request.
type Middleware struct {
	trusted   []netip.Prefix
	geoHeader string
}

func NewMiddleware(cfg *Config) *Middleware {
	m := &Middleware{geoHeader: DefaultGeoHeader}
	if cfg != nil {
		m.trusted = cfg.TrustedProxies
		if cfg.GeoHeader != "" {
			m.geoHeader = cfg.GeoHeader
		}
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peer := peerAddr(r.RemoteAddr)
		viaProxy := m.trustedPeer(peer)
		client := requestcontext.Client{
			IP:        m.clientIP(r, peer, viaProxy),
			UserAgent: r.Header.Get("User-Agent"),
		}
		if viaProxy {
			client.Geo = geoHint(r.Header.Get(m.geoHeader))
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithClient(r.Context(), client)))
	})
}

func (m *Middleware) clientIP(r *http.Request, peer string, viaProxy bool) string {
	if peer == "" {
		return "unknown"
	}
	if !viaProxy {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return forwarded(xff, first, peer)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return forwarded(xri, xri, peer)
	}
	return peer
}

// forwarded returns candidate when header is within bounds and candidate
// is an address, else the peer.
func forwarded(header, candidate, peer string) string {
	if len(header) > MaxForwardedLength {
		return peer
	}
	candidate = strings.TrimSpace(candidate)
	if _, err := netip.ParseAddr(candidate); err != nil {
		return peer
	}
	return candidate
}

func (m *Middleware) trustedPeer(peer string) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return slices.ContainsFunc(m.trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
}

// peerAddr strips the port from RemoteAddr. Values without a port are kept.
func peerAddr(remote string) string {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return strings.Trim(remote, "[]")
}

func geoHint(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxGeoLength {
		return ""
	}
	return v
}
