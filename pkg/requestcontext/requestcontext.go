// Package requestcontext carries request-scoped transport metadata (request id,
// client address, user agent, geo hint) through context.Context so services can
// record it without depending on net/http.
package requestcontext

import "context"

type (
	contextKeyRequestID struct{}
	contextKeyClient    struct{}
	contextKeyDevice    struct{}
	contextKeyBearer    struct{}
)

// Client is the raw connection metadata captured at the edge.
type Client struct {
	IP        string
	UserAgent string
	Geo       string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the correlation id, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return v
	}
	return ""
}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, c)
}

func ClientMetadata(ctx context.Context) Client {
	if v, ok := ctx.Value(contextKeyClient{}).(Client); ok {
		return v
	}
	return Client{}
}

func ClientIP(ctx context.Context) string {
	return ClientMetadata(ctx).IP
}

func UserAgent(ctx context.Context) string {
	return ClientMetadata(ctx).UserAgent
}

// Device is the parsed form of the User-Agent.
type Device struct {
	Kind    string
	OS      string
	Browser string
}

func WithDevice(ctx context.Context, d Device) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, d)
}

func DeviceInfo(ctx context.Context) Device {
	if v, ok := ctx.Value(contextKeyDevice{}).(Device); ok {
		return v
	}
	return Device{}
}

// WithBearer stores the raw bearer token presented on the request.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyBearer{}, token)
}

// Bearer returns the bearer token, or "" if none was presented.
func Bearer(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyBearer{}).(string); ok {
		return v
	}
	return ""
}
