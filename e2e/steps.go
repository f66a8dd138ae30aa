package e2e

import (
	"github.com/cucumber/godog"

	"scanbo/e2e/steps/common"
	"scanbo/e2e/steps/hospital"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Registry flows
	hospital.RegisterSteps(ctx, tc)
}
