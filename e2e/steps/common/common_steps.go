// Package common holds the request and response steps every feature shares.
package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario client these steps drive.
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	ResponseContains(text string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := steps{tc: tc}

	ctx.Step(`^Warden is running$`, s.serviceIsLive)
	ctx.Step(`^I GET "([^"]*)" without authorization$`, func(path string) error { return tc.GET(path, nil) })
	ctx.Step(`^I GET "([^"]*)" with invalid token "([^"]*)"$`, func(path, token string) error {
		return tc.GET(path, map[string]string{"Authorization": "Bearer " + token})
	})

	ctx.Step(`^the response status should be (\d+)$`, s.statusIs)
	ctx.Step(`^the response should contain "([^"]*)"$`, s.bodyContains)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, s.fieldMatches(func(got, want string) bool { return got == want }, "equal"))
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, s.fieldMatches(strings.Contains, "contain"))
	ctx.Step(`^the error code should be "([^"]*)"$`, s.errorCodeIs)
}

type steps struct {
	tc TestContext
}

func (s steps) serviceIsLive() error {
	if err := s.tc.GET("/health/live", nil); err != nil {
		return err
	}
	return s.statusIs(http.StatusOK)
}

func (s steps) statusIs(want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("status: want %d, got %d\n%s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s steps) bodyContains(text string) error {
	if !s.tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q\n%s", text, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s steps) fieldMatches(match func(got, want string) bool, verb string) func(field, want string) error {
	return func(field, want string) error {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if got := fmt.Sprint(v); !match(got, want) {
			return fmt.Errorf("field %s: want it to %s %q, got %q", field, verb, want, got)
		}
		return nil
	}
}

func (s steps) errorCodeIs(code string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("error body is not JSON: %w", err)
	}
	if body.Error != code {
		return fmt.Errorf("error code: want %s, got %s", code, body.Error)
	}
	return nil
}
