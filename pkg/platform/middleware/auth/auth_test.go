package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"warden/pkg/requestcontext"
)

// mockHandler records whether it ran and the context it saw.
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) TestExtractBearer() {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"standard":         {"Bearer st_abc", "st_abc", true},
		"lowercase scheme": {"bearer st_abc", "st_abc", true},
		"padded":           {"  Bearer   st_abc  ", "st_abc", true},
		"missing":          {"", "", false},
		"basic scheme":     {"Basic dXNlcjpwYXNz", "", false},
		"empty token":      {"Bearer ", "", false},
		"no separator":     {"Bearerst_abc", "", false},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			token, ok := ExtractBearer(req)
			s.Equal(tc.ok, ok)
			s.Equal(tc.token, token)
		})
	}
}

func (s *AuthMiddlewareSuite) TestRequireBearer() {
	s.Run("Given no header When request arrives Then 401 and handler not called", func() {
		next := &mockHandler{}
		w := httptest.NewRecorder()
		RequireBearer(s.logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/otp/verify", nil))

		s.Equal(http.StatusUnauthorized, w.Code)
		s.False(next.called)
		s.JSONEq(`{"error":"user_not_authenticated","error_description":"missing or invalid Authorization header"}`, w.Body.String())
	})

	s.Run("Given a bearer When request arrives Then token is in context", func() {
		next := &mockHandler{}
		req := httptest.NewRequest(http.MethodPost, "/auth/otp/verify", nil)
		req.Header.Set("Authorization", "Bearer st_token")
		w := httptest.NewRecorder()
		RequireBearer(s.logger)(next).ServeHTTP(w, req)

		s.Equal(http.StatusOK, w.Code)
		s.True(next.called)
		s.Equal("st_token", requestcontext.Bearer(next.context))
	})
}
