//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/transcribe"

	"github.com/cucumber/godog"
)

// transcribeContext holds test state for transcription scenarios
type transcribeContext struct {
	tempDir   string
	store     *sqlite.Store
	stub      *stubRequester
	client    *transcribe.Client
	server    *httptest.Server
	projectID string
	output    *bytes.Buffer
	err       error
}

// SharedTranscribeContext is reset before each scenario via Before hook
var SharedTranscribeContext *transcribeContext

func getTranscribeContext() *transcribeContext {
	return SharedTranscribeContext
}

func InitializeTranscribeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "transcribe-test-*")
		if err != nil {
			return c, err
		}
		SharedTranscribeContext = &transcribeContext{
			tempDir: tempDir,
			stub:    &stubRequester{},
			output:  &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedTranscribeContext.server != nil {
			SharedTranscribeContext.server.Close()
		}
		if SharedTranscribeContext.store != nil {
			SharedTranscribeContext.store.Close()
		}
		if SharedTranscribeContext.tempDir != "" {
			os.RemoveAll(SharedTranscribeContext.tempDir)
		}
		SharedTranscribeContext = nil
		return c, nil
	})

	ctx.Step(`^a prepared project titled "([^"]*)"$`, aPreparedProjectTitled)
	ctx.Step(`^an unprepared project titled "([^"]*)"$`, anUnpreparedProjectTitled)
	ctx.Step(`^the transcription service will return "([^"]*)"$`, theTranscriptionServiceWillReturn)
	ctx.Step(`^the transcription service will report error "([^"]*)"$`, theTranscriptionServiceWillReportError)
	ctx.Step(`^I request a transcript$`, iRequestATranscript)
	ctx.Step(`^the request should succeed$`, theRequestShouldSucceed)
	ctx.Step(`^the saved transcript should be "([^"]*)"$`, theSavedTranscriptShouldBe)
	ctx.Step(`^the request should fail with "([^"]*)"$`, theRequestShouldFailWith)
	ctx.Step(`^no transcript should be saved$`, noTranscriptShouldBeSaved)
	ctx.Step(`^the request should fail asking for chunk preparation first$`, theRequestShouldFailAskingForChunkPreparation)
	ctx.Step(`^the transcription service should not have been called$`, theTranscriptionServiceShouldNotHaveBeenCalled)
}

func aPreparedProjectTitled(title string) error {
	t := getTranscribeContext()

	store, err := openTempStore(t.tempDir)
	if err != nil {
		return err
	}
	t.store = store

	proj, err := project.NewProject(title, "uploads/lecture4.mp4")
	if err != nil {
		return err
	}
	if err := store.Create(context.Background(), proj); err != nil {
		return err
	}
	t.projectID = proj.ID

	return store.UpdateMetadata(context.Background(), proj.ID, chunkedMetadata(proj.ID, 150, 4))
}

func anUnpreparedProjectTitled(title string) error {
	t := getTranscribeContext()

	store, err := openTempStore(t.tempDir)
	if err != nil {
		return err
	}
	t.store = store

	proj, err := project.NewProject(title, "uploads/lecture4.mp4")
	if err != nil {
		return err
	}
	if err := store.Create(context.Background(), proj); err != nil {
		return err
	}
	t.projectID = proj.ID
	return nil
}

func theTranscriptionServiceWillReturn(transcript string) error {
	t := getTranscribeContext()

	t.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"transcript": transcript,
		})
	}))

	client, err := transcribe.NewClient(t.server.URL)
	if err != nil {
		return err
	}
	t.client = client
	return nil
}

func theTranscriptionServiceWillReportError(message string) error {
	t := getTranscribeContext()

	t.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"error": message,
		})
	}))

	client, err := transcribe.NewClient(t.server.URL)
	if err != nil {
		return err
	}
	t.client = client
	return nil
}

func iRequestATranscript() error {
	t := getTranscribeContext()

	if t.client != nil {
		t.err = cmd.RunTranscribeWithDependencies(context.Background(), t.client, t.store, t.projectID, t.output)
	} else {
		t.err = cmd.RunTranscribeWithDependencies(context.Background(), t.stub, t.store, t.projectID, t.output)
	}
	return nil
}

func theRequestShouldSucceed() error {
	t := getTranscribeContext()
	if t.err != nil {
		return fmt.Errorf("request failed: %v\noutput:\n%s", t.err, t.output.String())
	}
	return nil
}

func theSavedTranscriptShouldBe(expected string) error {
	t := getTranscribeContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if proj.Transcript != expected {
		return fmt.Errorf("saved transcript is %q, expected %q", proj.Transcript, expected)
	}
	return nil
}

func theRequestShouldFailWith(expected string) error {
	t := getTranscribeContext()
	if t.err == nil {
		return fmt.Errorf("expected a failure mentioning %q but the request succeeded", expected)
	}
	if !strings.Contains(t.err.Error(), expected) {
		return fmt.Errorf("error is %q, expected it to mention %q", t.err.Error(), expected)
	}
	return nil
}

func noTranscriptShouldBeSaved() error {
	t := getTranscribeContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if proj.Transcript != "" {
		return fmt.Errorf("expected no transcript, found %q", proj.Transcript)
	}
	return nil
}

func theRequestShouldFailAskingForChunkPreparation() error {
	t := getTranscribeContext()
	if t.err == nil {
		return fmt.Errorf("expected a failure but the request succeeded")
	}
	if !strings.Contains(t.err.Error(), "no prepared chunks") {
		return fmt.Errorf("error is %q, expected it to ask for chunk preparation", t.err.Error())
	}
	return nil
}

func theTranscriptionServiceShouldNotHaveBeenCalled() error {
	t := getTranscribeContext()
	if t.stub.calls != 0 {
		return fmt.Errorf("transcription service was called %d time(s)", t.stub.calls)
	}
	return nil
}
