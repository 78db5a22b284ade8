package tenant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any, headers map[string]string) error
	GetAccessTokenFor(name string) string
	GetLastResponseBody() []byte
}

// RegisterSteps registers tenant-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &tenantSteps{tc: tc}

	ctx.Step(`^"([^"]*)" checks membership of tenant domain "([^"]*)"$`, steps.membershipByDomain)
	ctx.Step(`^"([^"]*)" selects tenant domain "([^"]*)"$`, steps.selectByDomain)
	ctx.Step(`^the membership should have role "([^"]*)"$`, steps.membershipRoleShouldBe)
	ctx.Step(`^the member list should have (\d+) entries$`, steps.memberCountShouldBe)
}

type tenantSteps struct {
	tc TestContext
}

func (s *tenantSteps) bearer(name string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.tc.GetAccessTokenFor(name)}
}

func (s *tenantSteps) membershipByDomain(ctx context.Context, name, domain string) error {
	headers := s.bearer(name)
	headers["X-Tenant-Domain"] = domain
	return s.tc.Do("GET", "/tenant/membership", nil, headers)
}

func (s *tenantSteps) selectByDomain(ctx context.Context, name, domain string) error {
	return s.tc.Do("POST", "/me/tenant", map[string]any{"domain": domain}, s.bearer(name))
}

func (s *tenantSteps) membershipRoleShouldBe(ctx context.Context, role string) error {
	var body struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse membership: %w", err)
	}
	if body.Role != role {
		return fmt.Errorf("expected role %s but got %s", role, body.Role)
	}
	return nil
}

func (s *tenantSteps) memberCountShouldBe(ctx context.Context, n int) error {
	var body struct {
		Members []json.RawMessage `json:"members"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse member list: %w", err)
	}
	if len(body.Members) != n {
		return fmt.Errorf("expected %d members but got %d", n, len(body.Members))
	}
	return nil
}
