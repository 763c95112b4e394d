package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/media"
)

func TestExtractor_Extract(t *testing.T) {
	runner := &fakeRunner{output: []byte("mp3 stream")}
	extractor := NewExtractor(WithExtractorCommandRunner(runner))

	req, err := media.NewExtractionRequest([]byte("video bytes"), "192k")
	if err != nil {
		t.Fatalf("NewExtractionRequest unexpected error: %v", err)
	}

	audio, err := extractor.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract unexpected error: %v", err)
	}

	if !bytes.Equal(audio, []byte("mp3 stream")) {
		t.Errorf("audio = %q, want the runner's stdout", audio)
	}
	if !bytes.Equal(runner.gotStdin, []byte("video bytes")) {
		t.Error("video buffer not fed over stdin")
	}
	if runner.gotName != "ffmpeg" {
		t.Errorf("command = %q, want ffmpeg", runner.gotName)
	}

	args := runner.calls[0]
	for _, want := range [][2]string{
		{"-i", "pipe:0"},
		{"-acodec", "libmp3lame"},
		{"-ab", "192k"},
		{"-f", "mp3"},
	} {
		if !argsContainPair(args, want[0], want[1]) {
			t.Errorf("args missing %s %s: %s", want[0], want[1], joinArgs(runner.calls))
		}
	}
	if !containsArg(args, "-vn") {
		t.Errorf("args missing -vn: %s", joinArgs(runner.calls))
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("last arg = %q, want pipe:1", args[len(args)-1])
	}
}

func TestExtractor_ExtractUsesDefaultBitrate(t *testing.T) {
	runner := &fakeRunner{output: []byte("mp3")}
	extractor := NewExtractor(WithExtractorCommandRunner(runner))

	req, err := media.NewExtractionRequest([]byte("video"), "")
	if err != nil {
		t.Fatalf("NewExtractionRequest unexpected error: %v", err)
	}

	if _, err := extractor.Extract(context.Background(), req); err != nil {
		t.Fatalf("Extract unexpected error: %v", err)
	}

	if !argsContainPair(runner.calls[0], "-ab", media.DefaultAudioBitrate) {
		t.Errorf("args missing default bitrate: %s", joinArgs(runner.calls))
	}
}

func TestExtractor_ExtractFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	extractor := NewExtractor(WithExtractorCommandRunner(runner))

	req, _ := media.NewExtractionRequest([]byte("video"), "192k")
	_, err := extractor.Extract(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "audio extraction failed") {
		t.Errorf("error = %v, want wrapped extraction failure", err)
	}
}

func TestExtractor_VerifyInstalled(t *testing.T) {
	runner := &fakeRunner{output: []byte("ffmpeg version 6.1")}
	extractor := NewExtractor(WithExtractorCommandRunner(runner))

	if err := extractor.VerifyInstalled(context.Background()); err != nil {
		t.Errorf("VerifyInstalled unexpected error: %v", err)
	}

	runner.err = errors.New("executable file not found")
	if err := extractor.VerifyInstalled(context.Background()); err == nil {
		t.Error("expected error when ffmpeg is missing")
	}
}
