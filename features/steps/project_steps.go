//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"

	"github.com/cucumber/godog"
)

// projectContext holds test state for project management scenarios
type projectContext struct {
	tempDir   string
	store     *sqlite.Store
	projectID string
	frameID   string
	output    *bytes.Buffer
	err       error
}

// SharedProjectContext is reset before each scenario via Before hook
var SharedProjectContext *projectContext

func getProjectContext() *projectContext {
	return SharedProjectContext
}

func InitializeProjectScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "project-test-*")
		if err != nil {
			return c, err
		}
		SharedProjectContext = &projectContext{
			tempDir: tempDir,
			output:  &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedProjectContext.store != nil {
			SharedProjectContext.store.Close()
		}
		if SharedProjectContext.tempDir != "" {
			os.RemoveAll(SharedProjectContext.tempDir)
		}
		SharedProjectContext = nil
		return c, nil
	})

	ctx.Step(`^I create a project "([^"]*)" from source "([^"]*)"$`, iCreateAProjectFromSource)
	ctx.Step(`^the creation output should include the new project id$`, theCreationOutputShouldIncludeTheNewProjectID)
	ctx.Step(`^the project list should include "([^"]*)"$`, theProjectListShouldInclude)
	ctx.Step(`^I show the project "([^"]*)"$`, iShowTheProject)
	ctx.Step(`^the command should fail because the project does not exist$`, theCommandShouldFailBecauseTheProjectDoesNotExist)
	ctx.Step(`^a project with a frame captured at "([^"]*)"$`, aProjectWithAFrameCapturedAt)
	ctx.Step(`^I remove that frame$`, iRemoveThatFrame)
	ctx.Step(`^the project's frame library should be empty$`, theProjectsFrameLibraryShouldBeEmpty)
}

func (p *projectContext) openStore() error {
	if p.store != nil {
		return nil
	}
	store, err := openTempStore(p.tempDir)
	if err != nil {
		return err
	}
	p.store = store
	return nil
}

func iCreateAProjectFromSource(title, source string) error {
	p := getProjectContext()
	if err := p.openStore(); err != nil {
		return err
	}

	if err := cmd.RunProjectCreateWithDependencies(context.Background(), p.store, title, source, p.output); err != nil {
		return fmt.Errorf("creating project: %v", err)
	}

	projects, err := p.store.List(context.Background())
	if err != nil {
		return err
	}
	if len(projects) != 1 {
		return fmt.Errorf("expected 1 project after creation, found %d", len(projects))
	}
	p.projectID = projects[0].ID
	return nil
}

func theCreationOutputShouldIncludeTheNewProjectID() error {
	p := getProjectContext()
	if !strings.Contains(p.output.String(), p.projectID) {
		return fmt.Errorf("output does not mention project id %s:\n%s", p.projectID, p.output.String())
	}
	return nil
}

func theProjectListShouldInclude(title string) error {
	p := getProjectContext()
	listing := &bytes.Buffer{}
	if err := cmd.RunProjectListWithDependencies(context.Background(), p.store, listing); err != nil {
		return err
	}
	if !strings.Contains(listing.String(), title) {
		return fmt.Errorf("listing does not include %q:\n%s", title, listing.String())
	}
	return nil
}

func iShowTheProject(id string) error {
	p := getProjectContext()
	if err := p.openStore(); err != nil {
		return err
	}
	p.err = cmd.RunProjectShowWithDependencies(context.Background(), p.store, id, p.output)
	return nil
}

func theCommandShouldFailBecauseTheProjectDoesNotExist() error {
	p := getProjectContext()
	if p.err == nil {
		return fmt.Errorf("expected a failure but the command succeeded:\n%s", p.output.String())
	}
	if !errors.Is(p.err, project.ErrNotFound) && !strings.Contains(p.err.Error(), "project not found") {
		return fmt.Errorf("error is %q, expected a missing-project failure", p.err.Error())
	}
	return nil
}

func aProjectWithAFrameCapturedAt(timestamp string) error {
	p := getProjectContext()
	if err := p.openStore(); err != nil {
		return err
	}

	proj, err := project.NewProject("Lecture 4", "uploads/lecture4.mp4")
	if err != nil {
		return err
	}
	if err := p.store.Create(context.Background(), proj); err != nil {
		return err
	}
	p.projectID = proj.ID
	p.frameID = frame.FrameID(timestamp, 1234)

	return p.store.ReplaceFrames(context.Background(), proj.ID, []frame.ExtractedFrame{
		{
			ID:        p.frameID,
			Timestamp: timestamp,
			ImageRef:  fmt.Sprintf("https://storage.example/projects/%s/frames/%s.jpg", proj.ID, p.frameID),
			Width:     1280,
			Height:    720,
		},
	})
}

func iRemoveThatFrame() error {
	p := getProjectContext()
	return cmd.RunFramesRemoveWithDependencies(context.Background(), p.store, p.projectID, []string{p.frameID}, p.output)
}

func theProjectsFrameLibraryShouldBeEmpty() error {
	p := getProjectContext()
	proj, err := p.store.Get(context.Background(), p.projectID)
	if err != nil {
		return err
	}
	if len(proj.Frames) != 0 {
		return fmt.Errorf("expected an empty frame library, found %d frame(s)", len(proj.Frames))
	}
	return nil
}
