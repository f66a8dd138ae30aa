package hospital

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	AccountID(alias string) string
	Authenticate(alias string) error
	ClearToken()
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers hospital registry step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &hospitalSteps{tc: tc}

	ctx.Step(`^I am account "([^"]*)"$`, steps.iAmAccount)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I register hospital "([^"]*)" at "([^"]*)"$`, steps.registerHospital)
	ctx.Step(`^I register a hospital with a (\d+) byte name$`, steps.registerWithNameLength)
	ctx.Step(`^I register a hospital with a (\d+) byte location$`, steps.registerWithLocationLength)
	ctx.Step(`^I look up the hospital of account "([^"]*)"$`, steps.lookUp)
	ctx.Step(`^the response account_id should be account "([^"]*)"$`, steps.accountIDShouldBe)
}

type hospitalSteps struct {
	tc TestContext
}

func (s *hospitalSteps) iAmAccount(ctx context.Context, alias string) error {
	return s.tc.Authenticate(alias)
}

func (s *hospitalSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearToken()
	return nil
}

func (s *hospitalSteps) registerHospital(ctx context.Context, name, location string) error {
	return s.tc.POST("/hospitals", map[string]string{"name": name, "location": location})
}

func (s *hospitalSteps) registerWithNameLength(ctx context.Context, n int) error {
	return s.registerHospital(ctx, strings.Repeat("n", n), "somewhere")
}

func (s *hospitalSteps) registerWithLocationLength(ctx context.Context, n int) error {
	return s.registerHospital(ctx, "hospital", strings.Repeat("l", n))
}

func (s *hospitalSteps) lookUp(ctx context.Context, alias string) error {
	return s.tc.GET("/hospitals/" + url.PathEscape(s.tc.AccountID(alias)))
}

func (s *hospitalSteps) accountIDShouldBe(ctx context.Context, alias string) error {
	v, err := s.tc.GetResponseField("account_id")
	if err != nil {
		return err
	}
	if want := s.tc.AccountID(alias); v != want {
		return fmt.Errorf("account_id: expected %q, got %v", want, v)
	}
	return nil
}
