package requesttime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClocked(t *testing.T) {
	ticks := 0
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}

	var first, second time.Time
	h := Clocked(clock)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = Now(r.Context())
		second = Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, 1, ticks, "clock is read once per request")
	assert.Equal(t, first, second)
	assert.Equal(t, time.UTC, first.Location())
	assert.True(t, first.Equal(base.Add(time.Minute)))
}

func TestMiddleware_UsesWallClock(t *testing.T) {
	var got time.Time
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Now(r.Context())
	}))

	before := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestNow(t *testing.T) {
	t.Run("Given a bare context When read Then the current time is used", func(t *testing.T) {
		before := time.Now()
		got := Now(context.Background())
		assert.False(t, got.Before(before))
		assert.Equal(t, time.UTC, got.Location())
	})

	t.Run("Given nested WithTime When read Then the innermost wins", func(t *testing.T) {
		outer := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		inner := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
		ctx := WithTime(WithTime(context.Background(), outer), inner)
		assert.Equal(t, inner, Now(ctx))
	})
}
