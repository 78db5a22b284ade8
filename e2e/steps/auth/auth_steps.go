package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	Do(method, path string, body any, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetAccessToken() string
	SetAccessToken(token string)
	GetAccessTokenFor(name string) string
	SetAccessTokenFor(name, token string)
	Var(name string) string
	SetVar(name, value string)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc, run: strconv.FormatInt(time.Now().UnixNano(), 36)}

	ctx.Step(`^I register "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^I log in as "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.login)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, steps.loginAnonymous)
	ctx.Step(`^"([^"]*)" sends (GET|DELETE) "([^"]*)"$`, steps.send)
	ctx.Step(`^"([^"]*)" sends (POST|PUT|PATCH) "([^"]*)" with body:$`, steps.sendWithBody)
	ctx.Step(`^"([^"]*)" logs out$`, steps.logout)
	ctx.Step(`^"([^"]*)" refreshes the session$`, steps.refresh)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type authSteps struct {
	tc  TestContext
	run string
}

// expand replaces {run} with a per-run suffix and {name} with saved variables.
func (s *authSteps) expand(v string) string {
	v = strings.ReplaceAll(v, "{run}", s.run)
	for {
		start := strings.Index(v, "{")
		end := strings.Index(v, "}")
		if start < 0 || end < start {
			return v
		}
		key := v[start+1 : end]
		v = v[:start] + s.tc.Var(key) + v[end+1:]
	}
}

func (s *authSteps) register(ctx context.Context, name, email, password string) error {
	if err := s.tc.POST("/auth/register", map[string]any{
		"email":    s.expand(email),
		"password": password,
	}); err != nil {
		return err
	}
	return s.keepToken(name)
}

func (s *authSteps) login(ctx context.Context, name, email, password string) error {
	if err := s.tc.POST("/auth/login", map[string]any{
		"email":    s.expand(email),
		"password": password,
	}); err != nil {
		return err
	}
	return s.keepToken(name)
}

func (s *authSteps) loginAnonymous(ctx context.Context, email, password string) error {
	return s.tc.POST("/auth/login", map[string]any{
		"email":    s.expand(email),
		"password": password,
	})
}

// keepToken stores the access token from a successful session response.
// Failed responses are left for the assertion steps.
func (s *authSteps) keepToken(name string) error {
	status := s.tc.GetLastResponseStatus()
	if status != 200 && status != 201 {
		return nil
	}
	raw, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	token, ok := raw.(string)
	if !ok || token == "" {
		return fmt.Errorf("access_token is not a string: %v", raw)
	}
	s.tc.SetAccessTokenFor(name, token)
	s.tc.SetAccessToken(token)
	return nil
}

func (s *authSteps) headers(name string) map[string]string {
	token := s.tc.GetAccessTokenFor(name)
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *authSteps) send(ctx context.Context, name, method, path string) error {
	return s.tc.Do(method, s.expand(path), nil, s.headers(name))
}

func (s *authSteps) sendWithBody(ctx context.Context, name, method, path string, body *godog.DocString) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(s.expand(body.Content)), &payload); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return s.tc.Do(method, s.expand(path), payload, s.headers(name))
}

func (s *authSteps) logout(ctx context.Context, name string) error {
	return s.tc.Do("POST", "/auth/logout", nil, s.headers(name))
}

func (s *authSteps) refresh(ctx context.Context, name string) error {
	if err := s.tc.Do("POST", "/auth/refresh", nil, s.headers(name)); err != nil {
		return err
	}
	return s.keepToken(name)
}

func (s *authSteps) saveField(ctx context.Context, field, name string) error {
	raw, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.SetVar(name, fmt.Sprint(raw))
	return nil
}
