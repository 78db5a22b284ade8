package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// TestContext is the per-scenario client state: the last exchange, bearer
// tokens by actor name, and values captured by earlier steps.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	LastResponse     *http.Response
	LastResponseBody []byte

	AccessToken string
	tokens      map[string]string
	vars        map[string]string
}

func NewTestContext() *TestContext {
	base := strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &TestContext{
		BaseURL: base,
		HTTPClient: &http.Client{
			Timeout:       10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		tokens: make(map[string]string),
		vars:   make(map[string]string),
	}
}

func (tc *TestContext) POST(path string, body any) error { return tc.Do(http.MethodPost, path, body, nil) }

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

// Do sends body as JSON when non-nil and records the full response.
func (tc *TestContext) Do(method, path string, body any, headers map[string]string) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, payload)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	if tc.LastResponseBody, err = io.ReadAll(resp.Body); err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	return nil
}

// GetResponseField looks up a field of the last JSON object response.
// Dotted names descend into nested objects, e.g. "user.email".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.LastResponseBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, key := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s: %q is not an object", field, key)
		}
		if cur, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return cur, nil
}

// ResponseContains reports whether text occurs in the raw body.
func (tc *TestContext) ResponseContains(text string) bool {
	return bytes.Contains(tc.LastResponseBody, []byte(text))
}

func (tc *TestContext) GetAccessToken() string               { return tc.AccessToken }
func (tc *TestContext) SetAccessToken(token string)          { tc.AccessToken = token }
func (tc *TestContext) GetAccessTokenFor(name string) string { return tc.tokens[name] }
func (tc *TestContext) SetAccessTokenFor(name, token string) { tc.tokens[name] = token }

// Var returns a value saved by an earlier step, such as a tenant id.
func (tc *TestContext) Var(name string) string    { return tc.vars[name] }
func (tc *TestContext) SetVar(name, value string) { tc.vars[name] = value }

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte { return tc.LastResponseBody }
