package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"remake/internal/media"
	"remake/internal/pipeline"
	"remake/internal/services/transcribe"
	"remake/internal/testsupport"
	"remake/internal/workdir"
)

type fakeAcquirer struct {
	transcript transcribe.Transcript
	warnings   []string
	err        error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, captions transcribe.CaptionFetcher, audio transcribe.AudioExtractor, req transcribe.AcquireRequest) (transcribe.Transcript, []string, error) {
	return f.transcript, f.warnings, f.err
}

func newStage(t *testing.T, fake *testsupport.FakeToolchain, acquirer TranscriptAcquirer) (*Handler, workdir.Layout, *pipeline.State) {
	t.Helper()
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if acquirer == nil {
		acquirer = &fakeAcquirer{transcript: transcribe.Transcript{Source: transcribe.SourceSpeech}}
	}
	handler := NewHandler(testsupport.NewConfig(t), fake, acquirer, layout, nil)
	state := pipeline.NewState("run", pipeline.RemakeInput{
		SourceLocator: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Goal:          "shorten it",
	}, layout.Root)
	state.Artifacts["source_video"] = layout.SourceDir() + "/source.mp4"
	return handler, layout, state
}

func TestNormalizeBuildsSortedTimeline(t *testing.T) {
	fake := &testsupport.FakeToolchain{} // scenes at 10, 30, 60, 90 over 120s
	acquirer := &fakeAcquirer{transcript: transcribe.Transcript{
		Text:   "intro body outro",
		Source: transcribe.SourceCaptions,
		Cues: []transcribe.Cue{
			{Index: 1, Start: 2, End: 8, Text: "intro"},
			{Index: 2, Start: 35, End: 55, Text: "the long middle portion with most words"},
		},
	}}
	handler, layout, state := newStage(t, fake, acquirer)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	timeline, err := media.LoadTimeline(layout.SegmentsJSONPath())
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if timeline.DurationSeconds != 120 {
		t.Fatalf("unexpected duration %v", timeline.DurationSeconds)
	}
	scenes := timeline.SceneSegments()
	if len(scenes) != 5 {
		t.Fatalf("expected 5 scene segments from 4 boundaries, got %d", len(scenes))
	}
	if scenes[0].Start != 0 || scenes[len(scenes)-1].End != 120 {
		t.Fatalf("scene coverage broken: first %+v last %+v", scenes[0], scenes[len(scenes)-1])
	}
	for i := 1; i < len(timeline.Segments); i++ {
		if timeline.Segments[i].Start < timeline.Segments[i-1].Start {
			t.Fatalf("timeline not sorted at %d: %+v", i, timeline.Segments[i])
		}
	}

	// The segment overlapping the long cue should carry the top score.
	var top media.Segment
	for _, seg := range scenes {
		if seg.Score > top.Score {
			top = seg
		}
	}
	if !strings.Contains(top.Transcript, "middle portion") || top.Score != 1 {
		t.Fatalf("scoring did not favor the talkative segment: %+v", top)
	}

	if report.Output["transcript_source"] != transcribe.SourceCaptions {
		t.Fatalf("transcript source not reported: %+v", report.Output)
	}
}

func TestNormalizeFixedWindowFallback(t *testing.T) {
	fake := &testsupport.FakeToolchain{
		DetectScenesFunc: func(ctx context.Context, source string) ([]float64, error) {
			return nil, nil
		},
	}
	handler, layout, state := newStage(t, fake, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	timeline, err := media.LoadTimeline(layout.SegmentsJSONPath())
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	// 120s at 30s windows: 0-30, 30-60, 60-90, 90-120.
	if got := len(timeline.SceneSegments()); got != 4 {
		t.Fatalf("expected 4 fixed windows, got %d", got)
	}
	found := false
	for _, warning := range report.Warnings {
		if strings.Contains(warning, "fixed 30s windows") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fallback warning, got %v", report.Warnings)
	}
}

func TestNormalizeKeyframeCap(t *testing.T) {
	// 1200s source with a boundary every 10s produces far more than 20 scenes.
	var boundaries []float64
	for at := 10.0; at < 1200; at += 10 {
		boundaries = append(boundaries, at)
	}
	var frames int
	fake := &testsupport.FakeToolchain{
		ProbeFunc: func(ctx context.Context, path string) (media.VideoMetadata, error) {
			md := testsupport.DefaultMetadata()
			md.DurationSeconds = 1200
			return md, nil
		},
		DetectScenesFunc: func(ctx context.Context, source string) ([]float64, error) {
			return boundaries, nil
		},
		ExtractFrameFunc: func(ctx context.Context, source string, at float64, dest string) error {
			frames++
			return nil
		},
	}
	handler, _, state := newStage(t, fake, nil)

	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if frames != 20 {
		t.Fatalf("keyframe extraction must stop at 20, got %d", frames)
	}
}

func TestNormalizeTranscriptFailureDegrades(t *testing.T) {
	fake := &testsupport.FakeToolchain{}
	acquirer := &fakeAcquirer{err: errors.New("uvx not installed")}
	handler, layout, state := newStage(t, fake, acquirer)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("transcript failure must not fail the stage: %v", err)
	}
	found := false
	for _, warning := range report.Warnings {
		if strings.Contains(warning, "continuing without one") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected degradation warning, got %v", report.Warnings)
	}
	timeline, err := media.LoadTimeline(layout.SegmentsJSONPath())
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if len(timeline.Segments) == 0 {
		t.Fatal("segments should still be built without a transcript")
	}
}

func TestNormalizeMissingVideoIsFinal(t *testing.T) {
	handler, _, state := newStage(t, &testsupport.FakeToolchain{}, nil)
	delete(state.Artifacts, "source_video")

	if _, err := handler.Execute(context.Background(), state); err == nil {
		t.Fatal("expected failure without a downloaded video")
	}
}
