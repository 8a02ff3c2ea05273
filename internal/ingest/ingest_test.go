package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"remake/internal/pipeline"
	"remake/internal/services"
	"remake/internal/testsupport"
	"remake/internal/workdir"
)

func newStage(t *testing.T, fake *testsupport.FakeToolchain) (*Handler, workdir.Layout, *pipeline.State) {
	t.Helper()
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	cfg := testsupport.NewConfig(t)
	handler := NewHandler(cfg, fake, layout, nil)
	state := pipeline.NewState("run", pipeline.RemakeInput{
		SourceLocator: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Goal:          "shorten it",
		Language:      "en",
	}, layout.Root)
	return handler, layout, state
}

func TestIngestHappyPath(t *testing.T) {
	fake := &testsupport.FakeToolchain{}
	handler, layout, state := newStage(t, fake)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if state.SourceID != "dQw4w9WgXcQ" {
		t.Fatalf("source id not recorded: %q", state.SourceID)
	}
	if report.Output["source_video"] == "" {
		t.Fatal("download path missing from report")
	}
	if _, err := os.Stat(layout.MetadataJSONPath()); err != nil {
		t.Fatalf("metadata.json not persisted: %v", err)
	}
	// Default fake has no captions, so the stage degrades with a warning.
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "speech-to-text") {
		t.Fatalf("expected caption warning, got %v", report.Warnings)
	}
}

func TestIngestRecordsCaptionsWhenAvailable(t *testing.T) {
	fake := &testsupport.FakeToolchain{
		FetchCaptionsFunc: func(ctx context.Context, locator, lang, destDir string) (string, error) {
			return destDir + "/captions.en.srt", nil
		},
	}
	handler, _, state := newStage(t, fake)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if report.Output["captions"] == "" {
		t.Fatalf("caption path missing: %+v", report.Output)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("no warnings expected: %v", report.Warnings)
	}
}

func TestIngestDownloadFailureIsRetryable(t *testing.T) {
	fake := &testsupport.FakeToolchain{
		DownloadFunc: func(ctx context.Context, locator, destDir string) (string, error) {
			return "", errors.New("http 503")
		},
	}
	handler, _, state := newStage(t, fake)

	_, err := handler.Execute(context.Background(), state)
	if err == nil {
		t.Fatal("expected download failure")
	}
	if !services.Retryable(err) {
		t.Fatalf("download failure should be retryable: %v", err)
	}
}

func TestIngestBadLocatorIsFinal(t *testing.T) {
	fake := &testsupport.FakeToolchain{
		ResolveIDFunc: func(locator string) (string, error) {
			return "", errors.New("unrecognized locator")
		},
	}
	handler, _, state := newStage(t, fake)

	_, err := handler.Execute(context.Background(), state)
	if err == nil {
		t.Fatal("expected resolve failure")
	}
	if services.Retryable(err) {
		t.Fatalf("locator failure must be final: %v", err)
	}
	if got := fake.Calls; len(got) != 1 || got[0] != "resolve_id" {
		t.Fatalf("no further work should happen after resolve failure: %v", got)
	}
}

func TestIngestLocalFileSkipsCaptionFetch(t *testing.T) {
	fake := &testsupport.FakeToolchain{}
	handler, _, state := newStage(t, fake)
	source := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(source, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	state.Input.SourceLocator = source

	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, call := range fake.Calls {
		if call == "fetch_captions" {
			t.Fatal("local files have no platform captions to fetch")
		}
	}
}
