//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/frames"
	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"

	"github.com/cucumber/godog"
)

// captureContext holds test state for frame capture scenarios
type captureContext struct {
	tempDir   string
	store     *sqlite.Store
	gateway   *stubGateway
	sampler   *stubSampler
	stager    *stubStager
	server    *httptest.Server
	video     []byte
	projectID string
	output    *bytes.Buffer
	err       error
}

// SharedCaptureContext is reset before each scenario via Before hook
var SharedCaptureContext *captureContext

func getCaptureContext() *captureContext {
	return SharedCaptureContext
}

func InitializeCaptureScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "capture-test-*")
		if err != nil {
			return c, err
		}
		SharedCaptureContext = &captureContext{
			tempDir: tempDir,
			gateway: newStubGateway(),
			sampler: &stubSampler{},
			stager:  &stubStager{dir: tempDir},
			output:  &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		t := SharedCaptureContext
		if t.server != nil {
			t.server.Close()
		}
		if t.store != nil {
			t.store.Close()
		}
		if t.tempDir != "" {
			os.RemoveAll(t.tempDir)
		}
		SharedCaptureContext = nil
		return c, nil
	})

	ctx.Step(`^a chunked project "([^"]*)" with a (\d+) second video$`, aChunkedProjectWithASecondVideo)
	ctx.Step(`^the image upload for "([^"]*)" will fail$`, theImageUploadForWillFail)
	ctx.Step(`^the library already holds a frame at "([^"]*)"$`, theLibraryAlreadyHoldsAFrameAt)
	ctx.Step(`^I capture frames at "([^"]*)"$`, iCaptureFramesAt)
	ctx.Step(`^I capture frames at "([^"]*)" without a local copy$`, iCaptureFramesAtWithoutALocalCopy)
	ctx.Step(`^the capture should succeed$`, theCaptureShouldSucceed)
	ctx.Step(`^frames should be sampled in order "([^"]*)"$`, framesShouldBeSampledInOrder)
	ctx.Step(`^the frame library should hold (\d+) frames?$`, theFrameLibraryShouldHoldFrames)
	ctx.Step(`^the output should mention (\d+) dropped timestamp$`, theOutputShouldMentionDroppedTimestamps)
	ctx.Step(`^the output should mention the skipped frame$`, theOutputShouldMentionTheSkippedFrame)
	ctx.Step(`^the downloaded video should have been staged for sampling$`, theDownloadedVideoShouldHaveBeenStaged)
}

func aChunkedProjectWithASecondVideo(title string, seconds int) error {
	t := getCaptureContext()

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

	md := chunkedMetadata(proj.ID, float64(seconds), 2)
	if err := store.UpdateMetadata(context.Background(), proj.ID, md); err != nil {
		return err
	}

	t.video = []byte("stored-video-bytes")
	t.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(t.video)
	}))
	t.gateway.signURL = t.server.URL
	return nil
}

func theImageUploadForWillFail(timestamp string) error {
	t := getCaptureContext()
	t.gateway.failContains = append(t.gateway.failContains, strings.ReplaceAll(timestamp, ":", "-"))
	return nil
}

func theLibraryAlreadyHoldsAFrameAt(timestamp string) error {
	t := getCaptureContext()
	existing := frame.ExtractedFrame{
		ID:        frame.FrameID(timestamp, 1000),
		Timestamp: timestamp,
		ImageRef:  fmt.Sprintf("projects/%s/frames/earlier.jpg", t.projectID),
		Width:     1280,
		Height:    720,
	}
	return t.store.ReplaceFrames(context.Background(), t.projectID, []frame.ExtractedFrame{existing})
}

func captureAt(timestamps string, sourcePath string) error {
	t := getCaptureContext()

	input := frames.CaptureInput{
		ProjectID:  t.projectID,
		SourcePath: sourcePath,
		Timestamps: strings.Split(timestamps, ", "),
	}

	t.err = cmd.RunCaptureFramesWithDependencies(
		context.Background(),
		config.Default(),
		t.sampler,
		t.gateway,
		t.store,
		t.stager,
		input,
		t.output,
	)
	return nil
}

func iCaptureFramesAt(timestamps string) error {
	return captureAt(timestamps, "lecture4.mp4")
}

func iCaptureFramesAtWithoutALocalCopy(timestamps string) error {
	return captureAt(timestamps, "")
}

func theCaptureShouldSucceed() error {
	t := getCaptureContext()
	if t.err != nil {
		return fmt.Errorf("capture failed: %v\noutput:\n%s", t.err, t.output.String())
	}
	return nil
}

func framesShouldBeSampledInOrder(timestamps string) error {
	t := getCaptureContext()
	expected := strings.Split(timestamps, ", ")
	if len(t.sampler.sampled) != len(expected) {
		return fmt.Errorf("sampled %v, expected %v", t.sampler.sampled, expected)
	}
	for i := range expected {
		if t.sampler.sampled[i] != expected[i] {
			return fmt.Errorf("sampled %v, expected %v", t.sampler.sampled, expected)
		}
	}
	return nil
}

func theFrameLibraryShouldHoldFrames(count int) error {
	t := getCaptureContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if got := proj.Library().Len(); got != count {
		return fmt.Errorf("library holds %d frames, expected %d", got, count)
	}
	return nil
}

func theOutputShouldMentionDroppedTimestamps(count int) error {
	t := getCaptureContext()
	want := fmt.Sprintf("Dropped %d timestamp", count)
	if !strings.Contains(t.output.String(), want) {
		return fmt.Errorf("output does not mention %q:\n%s", want, t.output.String())
	}
	return nil
}

func theOutputShouldMentionTheSkippedFrame() error {
	t := getCaptureContext()
	if !strings.Contains(t.output.String(), "skipped") {
		return fmt.Errorf("output does not mention a skipped frame:\n%s", t.output.String())
	}
	return nil
}

func theDownloadedVideoShouldHaveBeenStaged() error {
	t := getCaptureContext()
	if len(t.stager.data) == 0 {
		return fmt.Errorf("nothing was staged")
	}
	if !bytes.Equal(t.stager.data[0], t.video) {
		return fmt.Errorf("staged bytes do not match the stored video")
	}
	if want := t.projectID + ".mp4"; t.stager.names[0] != want {
		return fmt.Errorf("staged under %q, expected %q", t.stager.names[0], want)
	}
	return nil
}
