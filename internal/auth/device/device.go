package device

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"warden/internal/auth/models"
	"warden/pkg/requestcontext"
)

const (
	KindDesktop = "desktop"
	KindMobile  = "mobile"
	KindBot     = "bot"
)

// Parse extracts device kind, OS and browser from a User-Agent string.
// Mobile agents report their platform (e.g. "iPhone") when the OS is vague.
func Parse(userAgentString string) requestcontext.Device {
	if strings.TrimSpace(userAgentString) == "" {
		return requestcontext.Device{}
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := strings.TrimSpace(ua.OS())

	kind := KindDesktop
	switch {
	case ua.Bot():
		kind = KindBot
	case ua.Mobile():
		kind = KindMobile
		if platform := strings.TrimSpace(ua.Platform()); platform != "" && os == "" {
			os = platform
		}
	}

	return requestcontext.Device{
		Kind:    kind,
		OS:      os,
		Browser: strings.TrimSpace(browser),
	}
}

// ClientContext assembles the session's client description from request metadata.
// Device details are re-derived from the User-Agent when the middleware did not run.
func ClientContext(ctx context.Context) models.ClientContext {
	client := requestcontext.ClientMetadata(ctx)
	d := requestcontext.DeviceInfo(ctx)
	if d == (requestcontext.Device{}) {
		d = Parse(client.UserAgent)
	}
	return models.ClientContext{
		IP:      client.IP,
		Device:  d.Kind,
		OS:      d.OS,
		Browser: d.Browser,
		Geo:     client.Geo,
	}
}

// ParseUserAgent extracts a human-readable device display name from User-Agent string.
// Returns format: "Browser on OS" (e.g., "Chrome on macOS", "Safari on iOS")
func ParseUserAgent(userAgentString string) string {
	d := Parse(userAgentString)
	return models.ClientContext{Device: d.Kind, OS: d.OS, Browser: d.Browser}.DisplayName()
}
