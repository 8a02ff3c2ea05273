package understand

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"remake/internal/analysis"
	"remake/internal/media"
	"remake/internal/pipeline"
	"remake/internal/testsupport"
	"remake/internal/workdir"
)

type fakeCompleter struct {
	payload string
	err     error
	called  bool
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.called = true
	return f.payload, f.err
}

func seedWorkdir(t *testing.T) (workdir.Layout, *pipeline.State) {
	t.Helper()
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	timeline := media.Timeline{
		DurationSeconds:  120,
		TranscriptSource: "captions",
		Segments: []media.Segment{
			{ID: "scene-001", Start: 0, End: 40, Kind: media.SegmentScene, Transcript: "we explain the gradient descent update rule", Score: 0.4},
			{ID: "scene-002", Start: 40, End: 80, Kind: media.SegmentScene, Transcript: "sponsor message unrelated to the topic", Score: 1.0},
			{ID: "scene-003", Start: 80, End: 120, Kind: media.SegmentScene, Transcript: "", Score: 0},
			{ID: "speech-001", Start: 0, End: 40, Kind: media.SegmentSpeech, Transcript: "we explain the gradient descent update rule"},
		},
	}
	if err := media.SaveTimeline(timeline, layout.SegmentsJSONPath()); err != nil {
		t.Fatalf("save timeline: %v", err)
	}
	testsupport.WriteFile(t, layout.TranscriptPath(), "we explain the gradient descent update rule. sponsor message.")

	state := pipeline.NewState("run", pipeline.RemakeInput{
		SourceLocator: "x",
		Goal:          "make a summary",
	}, layout.Root)
	return layout, state
}

func TestUnderstandUsesLLMAnalysis(t *testing.T) {
	layout, state := seedWorkdir(t)
	completer := &fakeCompleter{payload: `{
		"summary": "A lecture on gradient descent.",
		"structure": "Educational",
		"sections": [{"title": "intro", "start": 0, "end": 40}],
		"key_points": ["gradient descent update rule"],
		"tone": "didactic",
		"target_audience": "students"
	}`}
	handler := NewHandler(testsupport.NewConfig(t), completer, layout, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !completer.called {
		t.Fatal("completer was not consulted")
	}
	if report.Output["structure"] != analysis.StructureEducational {
		t.Fatalf("structure not normalized: %+v", report.Output)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}

	if _, err := os.Stat(layout.AnalysisJSONPath()); err != nil {
		t.Fatalf("analysis.json missing: %v", err)
	}
	md := testsupport.ReadFile(t, layout.AnalysisReportPath())
	if !strings.Contains(md, "gradient descent") || !strings.Contains(md, "## Key points") {
		t.Fatalf("analysis.md incomplete:\n%s", md)
	}
}

func TestUnderstandRescoresByKeyPoints(t *testing.T) {
	layout, state := seedWorkdir(t)
	completer := &fakeCompleter{payload: `{
		"summary": "A lecture.",
		"structure": "educational",
		"key_points": ["gradient descent update rule"]
	}`}
	handler := NewHandler(testsupport.NewConfig(t), completer, layout, nil)

	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}

	timeline, err := media.LoadTimeline(layout.SegmentsJSONPath())
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	scores := map[string]float64{}
	for _, seg := range timeline.Segments {
		scores[seg.ID] = seg.Score
	}
	// scene-001 covers the key point: 0.4*0.5 + 0.5 = 0.7.
	// scene-002 does not: 1.0*0.5 = 0.5.
	if scores["scene-001"] <= scores["scene-002"] {
		t.Fatalf("key-point coverage should outrank raw length: %+v", scores)
	}
}

func TestUnderstandFallsBackOnLLMFailure(t *testing.T) {
	layout, state := seedWorkdir(t)
	completer := &fakeCompleter{err: errors.New("http 500")}
	handler := NewHandler(testsupport.NewConfig(t), completer, layout, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("llm failure must degrade, not fail: %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "fallback") {
		t.Fatalf("expected fallback warning, got %v", report.Warnings)
	}

	data := testsupport.ReadFile(t, layout.AnalysisJSONPath())
	if !strings.Contains(data, `"source": "fallback"`) {
		t.Fatalf("fallback analysis not persisted:\n%s", data)
	}
}

func TestUnderstandFallsBackOnGarbagePayload(t *testing.T) {
	layout, state := seedWorkdir(t)
	completer := &fakeCompleter{payload: "I cannot help with that."}
	handler := NewHandler(testsupport.NewConfig(t), completer, layout, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("garbage payload must degrade, not fail: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings)
	}
}

func TestUnderstandRequiresNormalizeArtifacts(t *testing.T) {
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	handler := NewHandler(testsupport.NewConfig(t), &fakeCompleter{}, layout, nil)
	state := pipeline.NewState("run", pipeline.RemakeInput{SourceLocator: "x", Goal: "g"}, layout.Root)

	if _, err := handler.Execute(context.Background(), state); err == nil {
		t.Fatal("expected failure without normalize artifacts")
	}
}
