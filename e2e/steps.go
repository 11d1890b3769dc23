package e2e

import (
	"github.com/cucumber/godog"

	"mintgate/e2e/steps/allocation"
	"mintgate/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Engine configuration and allocation steps
	allocation.RegisterSteps(ctx, tc)
}
