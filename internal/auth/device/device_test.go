package device

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"warden/pkg/requestcontext"
)

const (
	chromeMac    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	googlebot    = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		assertion func(t *testing.T, d requestcontext.Device)
	}{
		{
			name:      "empty user agent yields zero device",
			userAgent: "",
			assertion: func(t *testing.T, d requestcontext.Device) {
				assert.Equal(t, requestcontext.Device{}, d)
			},
		},
		{
			name:      "chrome on desktop",
			userAgent: chromeMac,
			assertion: func(t *testing.T, d requestcontext.Device) {
				assert.Equal(t, KindDesktop, d.Kind)
				assert.Equal(t, "Chrome", d.Browser)
				assert.NotEmpty(t, d.OS)
			},
		},
		{
			name:      "safari on iphone is mobile",
			userAgent: safariIPhone,
			assertion: func(t *testing.T, d requestcontext.Device) {
				assert.Equal(t, KindMobile, d.Kind)
				assert.Equal(t, "Safari", d.Browser)
			},
		},
		{
			name:      "firefox on linux",
			userAgent: firefoxLinux,
			assertion: func(t *testing.T, d requestcontext.Device) {
				assert.Equal(t, "Firefox", d.Browser)
				assert.Contains(t, d.OS, "Linux")
			},
		},
		{
			name:      "crawler is a bot",
			userAgent: googlebot,
			assertion: func(t *testing.T, d requestcontext.Device) {
				assert.Equal(t, KindBot, d.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion(t, Parse(tt.userAgent))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	t.Run("empty user agent returns unknown device", func(t *testing.T) {
		assert.Equal(t, "Unknown device", ParseUserAgent(""))
	})

	t.Run("desktop browser reads as browser on os", func(t *testing.T) {
		result := ParseUserAgent(chromeMac)
		assert.True(t, strings.HasPrefix(result, "Chrome on "), result)
		assert.Equal(t, result, strings.TrimSpace(result))
	})
}

func TestClientContext(t *testing.T) {
	t.Run("Given client metadata without device Then device is derived", func(t *testing.T) {
		ctx := requestcontext.WithClient(context.Background(), requestcontext.Client{
			IP: "198.51.100.7", UserAgent: firefoxLinux, Geo: "FR",
		})

		cc := ClientContext(ctx)
		assert.Equal(t, "198.51.100.7", cc.IP)
		assert.Equal(t, "FR", cc.Geo)
		assert.Equal(t, "Firefox", cc.Browser)
		assert.Equal(t, KindDesktop, cc.Device)
	})

	t.Run("Given parsed device in context Then it is used as is", func(t *testing.T) {
		ctx := requestcontext.WithClient(context.Background(), requestcontext.Client{UserAgent: firefoxLinux})
		ctx = requestcontext.WithDevice(ctx, requestcontext.Device{Kind: KindMobile, OS: "Android", Browser: "Chrome"})

		cc := ClientContext(ctx)
		assert.Equal(t, "Chrome on Android", cc.DisplayName())
	})
}
