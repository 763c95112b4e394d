//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"

	"github.com/cucumber/godog"
)

// operationsContext holds test state for operation report scenarios
type operationsContext struct {
	output *bytes.Buffer
}

// SharedOperationsContext is reset before each scenario via Before hook
var SharedOperationsContext *operationsContext

func getOperationsContext() *operationsContext {
	return SharedOperationsContext
}

func InitializeOperationsScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		cmd.GetTracker().ClearAll()
		SharedOperationsContext = &operationsContext{
			output: &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedOperationsContext = nil
		return c, nil
	})

	ctx.Step(`^I run the operations report$`, iRunTheOperationsReport)
	ctx.Step(`^I run the operations report for active operations only$`, iRunTheOperationsReportForActiveOnly)
	ctx.Step(`^the report should say no operations were recorded$`, theReportShouldSayNoOperationsRecorded)
	ctx.Step(`^the report should say no operations are active$`, theReportShouldSayNoOperationsActive)
	ctx.Step(`^the report should list a completed "([^"]*)" operation$`, theReportShouldListACompletedOperation)
}

func iRunTheOperationsReport() error {
	o := getOperationsContext()
	return cmd.RunOperationsWithDependencies(cmd.GetTracker(), false, o.output)
}

func iRunTheOperationsReportForActiveOnly() error {
	o := getOperationsContext()
	return cmd.RunOperationsWithDependencies(cmd.GetTracker(), true, o.output)
}

func theReportShouldSayNoOperationsRecorded() error {
	o := getOperationsContext()
	if !strings.Contains(o.output.String(), "No operations recorded") {
		return fmt.Errorf("report does not say no operations were recorded:\n%s", o.output.String())
	}
	return nil
}

func theReportShouldSayNoOperationsActive() error {
	o := getOperationsContext()
	if !strings.Contains(o.output.String(), "No active operations") {
		return fmt.Errorf("report does not say no operations are active:\n%s", o.output.String())
	}
	return nil
}

func theReportShouldListACompletedOperation(opType string) error {
	o := getOperationsContext()
	for _, line := range strings.Split(o.output.String(), "\n") {
		if strings.Contains(line, opType) && strings.Contains(line, "completed") {
			return nil
		}
	}
	return fmt.Errorf("no completed %q operation in the report:\n%s", opType, o.output.String())
}
