package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/platform/httputil"
)

// opaqueReader hides the length so httptest cannot set Content-Length.
type opaqueReader struct{ r io.Reader }

func (o opaqueReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestBodyLimit(t *testing.T) {
	const limit int64 = 100

	t.Run("Given a body within the limit When read Then the handler sees all of it", func(t *testing.T) {
		for _, size := range []int{0, 50, int(limit)} {
			var got int
			h := BodyLimit(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				got = len(data)
			}))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(strings.Repeat("x", size))))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, size, got)
		}
	})

	t.Run("Given a declared length over the limit When served Then 413 without calling the handler", func(t *testing.T) {
		called := false
		h := BodyLimit(limit)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(strings.Repeat("x", 200))))

		assert.False(t, called)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var body httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "request_too_large", body.Error)
	})

	t.Run("Given a body of unknown length over the limit When read Then the read fails", func(t *testing.T) {
		var readErr error
		h := BodyLimit(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
		}))
		req := httptest.NewRequest(http.MethodPost, "/auth/register", opaqueReader{strings.NewReader(strings.Repeat("x", 200))})
		h.ServeHTTP(httptest.NewRecorder(), req)

		var tooLarge *http.MaxBytesError
		require.True(t, errors.As(readErr, &tooLarge))
		assert.Equal(t, limit, tooLarge.Limit)
	})
}
