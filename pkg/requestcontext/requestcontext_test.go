package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestContext(t *testing.T) {
	t.Run("empty context yields zero values", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, RequestID(ctx))
		assert.Equal(t, Client{}, ClientMetadata(ctx))
	})

	t.Run("values round trip", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		ctx = WithClient(ctx, Client{IP: "10.0.0.1", UserAgent: "curl/8.0", Geo: "DE"})

		assert.Equal(t, "req-1", RequestID(ctx))
		assert.Equal(t, "10.0.0.1", ClientIP(ctx))
		assert.Equal(t, "curl/8.0", UserAgent(ctx))
		assert.Equal(t, "DE", ClientMetadata(ctx).Geo)
	})

	t.Run("device and bearer round trip", func(t *testing.T) {
		ctx := WithDevice(context.Background(), Device{Kind: "mobile", OS: "iOS", Browser: "Safari"})
		ctx = WithBearer(ctx, "st_abc")

		assert.Equal(t, "mobile", DeviceInfo(ctx).Kind)
		assert.Equal(t, "st_abc", Bearer(ctx))
		assert.Empty(t, Bearer(context.Background()))
		assert.Equal(t, Device{}, DeviceInfo(context.Background()))
	})
}
