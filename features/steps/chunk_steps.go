//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/application/chunking"
	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"

	"github.com/cucumber/godog"
)

// chunkContext holds test state for chunk preparation scenarios
type chunkContext struct {
	tempDir   string
	store     *sqlite.Store
	gateway   *stubGateway
	extractor *stubExtractor
	prober    *stubProber
	server    *httptest.Server
	projectID string
	output    *bytes.Buffer
	err       error
}

// SharedChunkContext is reset before each scenario via Before hook
var SharedChunkContext *chunkContext

func getChunkContext() *chunkContext {
	return SharedChunkContext
}

func InitializeChunkScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "chunk-test-*")
		if err != nil {
			return c, err
		}
		SharedChunkContext = &chunkContext{
			tempDir:   tempDir,
			gateway:   newStubGateway(),
			extractor: &stubExtractor{},
			prober:    &stubProber{},
			output:    &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		t := SharedChunkContext
		if t.server != nil {
			t.server.Close()
		}
		if t.store != nil {
			t.store.Close()
		}
		if t.tempDir != "" {
			os.RemoveAll(t.tempDir)
		}
		SharedChunkContext = nil
		return c, nil
	})

	ctx.Step(`^a project "([^"]*)" with source video "([^"]*)"$`, aProjectWithSourceVideo)
	ctx.Step(`^the stored audio track is (\d+) seconds long$`, theStoredAudioTrackIsSecondsLong)
	ctx.Step(`^the uploads of chunk (\d+) and chunk (\d+) will fail$`, theUploadsOfChunksWillFail)
	ctx.Step(`^I prepare chunks with length (\d+) and overlap (\d+)$`, iPrepareChunksWithLengthAndOverlap)
	ctx.Step(`^the preparation should succeed$`, thePreparationShouldSucceed)
	ctx.Step(`^(\d+) chunks should be recorded on the project$`, chunksShouldBeRecordedOnTheProject)
	ctx.Step(`^the recorded chunk ranges should be:$`, theRecordedChunkRangesShouldBe)
	ctx.Step(`^(\d+) chunk objects should be stored$`, chunkObjectsShouldBeStored)
	ctx.Step(`^no chunk objects should be stored$`, noChunkObjectsShouldBeStored)
	ctx.Step(`^the preparation should fail because chunk length must exceed overlap$`, thePreparationShouldFailBecauseOverlap)
	ctx.Step(`^the preparation should fail naming chunks "([^"]*)"$`, thePreparationShouldFailNamingChunks)
	ctx.Step(`^chunk objects (\d+) and (\d+) should still be stored$`, chunkObjectsShouldStillBeStored)
	ctx.Step(`^the project's chunking status should be "([^"]*)"$`, theProjectsChunkingStatusShouldBe)
}

func aProjectWithSourceVideo(title, source string) error {
	t := getChunkContext()

	store, err := openTempStore(t.tempDir)
	if err != nil {
		return err
	}
	t.store = store

	proj, err := project.NewProject(title, source)
	if err != nil {
		return err
	}
	if err := store.Create(context.Background(), proj); err != nil {
		return err
	}
	t.projectID = proj.ID
	return nil
}

func theStoredAudioTrackIsSecondsLong(seconds int) error {
	t := getChunkContext()

	video := []byte("stored-video-bytes")
	t.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(video)
	}))
	t.gateway.signURL = t.server.URL

	// Constant-bitrate stand-in so byte slicing stays proportional to time
	t.extractor.audio = bytes.Repeat([]byte("a"), seconds*100)
	t.prober.duration = float64(seconds)
	return nil
}

func theUploadsOfChunksWillFail(first, second int) error {
	t := getChunkContext()
	t.gateway.uploadErrs[chunking.ChunkObjectPath(t.projectID, first)] = fmt.Errorf("storage rejected the object")
	t.gateway.uploadErrs[chunking.ChunkObjectPath(t.projectID, second)] = fmt.Errorf("storage rejected the object")
	return nil
}

func iPrepareChunksWithLengthAndOverlap(length, overlap int) error {
	t := getChunkContext()

	input := chunking.Input{
		ProjectID:      t.projectID,
		ChunkSeconds:   float64(length),
		OverlapSeconds: float64(overlap),
	}

	t.err = cmd.RunPrepareChunksWithDependencies(
		context.Background(),
		config.Default(),
		t.gateway,
		t.extractor,
		t.prober,
		t.store,
		input,
		t.output,
	)
	return nil
}

func thePreparationShouldSucceed() error {
	t := getChunkContext()
	if t.err != nil {
		return fmt.Errorf("preparation failed: %v\noutput:\n%s", t.err, t.output.String())
	}
	return nil
}

func chunksShouldBeRecordedOnTheProject(count int) error {
	t := getChunkContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if proj.Metadata == nil || proj.Metadata.Chunking == nil {
		return fmt.Errorf("no chunking metadata recorded")
	}
	if got := len(proj.Metadata.Chunking.Chunks); got != count {
		return fmt.Errorf("expected %d recorded chunks, got %d", count, got)
	}
	return nil
}

func theRecordedChunkRangesShouldBe(table *godog.Table) error {
	t := getChunkContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if proj.Metadata == nil || proj.Metadata.Chunking == nil {
		return fmt.Errorf("no chunking metadata recorded")
	}
	chunks := proj.Metadata.Chunking.Chunks

	for i, row := range table.Rows {
		if i == 0 {
			continue // header row
		}
		index, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return fmt.Errorf("bad index in table: %v", err)
		}
		start, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return fmt.Errorf("bad start in table: %v", err)
		}
		end, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return fmt.Errorf("bad end in table: %v", err)
		}

		if index >= len(chunks) {
			return fmt.Errorf("chunk %d not recorded (only %d chunks)", index, len(chunks))
		}
		c := chunks[index]
		if c.StartTime != start || c.EndTime != end {
			return fmt.Errorf("chunk %d spans [%v, %v), expected [%v, %v)", index, c.StartTime, c.EndTime, start, end)
		}
	}
	return nil
}

func chunkObjectsShouldBeStored(count int) error {
	t := getChunkContext()
	if got := t.gateway.storedUnder(chunking.ChunkDir(t.projectID)); got != count {
		return fmt.Errorf("expected %d stored chunk objects, got %d", count, got)
	}
	return nil
}

func noChunkObjectsShouldBeStored() error {
	return chunkObjectsShouldBeStored(0)
}

func thePreparationShouldFailBecauseOverlap() error {
	t := getChunkContext()
	if t.err == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(t.err.Error(), "chunk length must exceed overlap") {
		return fmt.Errorf("expected error about chunk length and overlap, got: %v", t.err)
	}
	return nil
}

func thePreparationShouldFailNamingChunks(indices string) error {
	t := getChunkContext()
	if t.err == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(t.err.Error(), indices) {
		return fmt.Errorf("expected error naming chunks %s, got: %v", indices, t.err)
	}
	return nil
}

func chunkObjectsShouldStillBeStored(first, second int) error {
	t := getChunkContext()
	for _, index := range []int{first, second} {
		path := chunking.ChunkObjectPath(t.projectID, index)
		if _, ok := t.gateway.objects[path]; !ok {
			return fmt.Errorf("chunk object %s is not stored", path)
		}
	}
	return nil
}

func theProjectsChunkingStatusShouldBe(status string) error {
	t := getChunkContext()
	proj, err := t.store.Get(context.Background(), t.projectID)
	if err != nil {
		return err
	}
	if proj.Metadata == nil || proj.Metadata.Chunking == nil {
		return fmt.Errorf("no chunking metadata recorded")
	}
	if got := string(proj.Metadata.Chunking.Status); got != status {
		return fmt.Errorf("chunking status is %q, expected %q", got, status)
	}
	return nil
}
