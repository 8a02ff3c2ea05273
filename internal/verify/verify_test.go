package verify

import (
	"context"
	"strings"
	"testing"

	"remake/internal/config"
	"remake/internal/media"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/qa"
	"remake/internal/recipe"
	"remake/internal/testsupport"
	"remake/internal/workdir"
)

func seedWorkdir(t *testing.T) (workdir.Layout, *pipeline.State) {
	t.Helper()
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	testsupport.WriteFile(t, layout.FinalVideoPath(), "video")
	testsupport.WriteFile(t, layout.TranscriptPath(), "a short recap of the original lecture")

	state := pipeline.NewState("run", pipeline.RemakeInput{SourceLocator: "x", Goal: "g"}, layout.Root)
	state.OutputPath = layout.FinalVideoPath()
	state.TargetSeconds = 120
	return layout, state
}

func TestVerifyPassesCleanOutput(t *testing.T) {
	layout, state := seedWorkdir(t)
	handler := NewHandler(testsupport.NewConfig(t), &testsupport.FakeToolchain{}, layout, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !state.QAPassed || state.QAScore != 100 {
		t.Fatalf("expected a clean pass, got score=%d passed=%v", state.QAScore, state.QAPassed)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}

	result, err := qa.Load(layout.QAResultPath())
	if err != nil {
		t.Fatalf("load qa result: %v", err)
	}
	if len(result.Checks) != 6 {
		t.Fatalf("expected the 6-check battery, got %d", len(result.Checks))
	}
}

func failingToolchain() *testsupport.FakeToolchain {
	tc := &testsupport.FakeToolchain{}
	// Duration misses the 120s target and long silences pile up; four of
	// six checks pass for a score of 67.
	tc.ProbeFunc = func(ctx context.Context, path string) (media.VideoMetadata, error) {
		meta := testsupport.DefaultMetadata()
		meta.DurationSeconds = 90
		return meta, nil
	}
	tc.DetectSilenceFunc = func(ctx context.Context, source string, minDuration float64) ([]toolchain.Interval, error) {
		return []toolchain.Interval{
			{Start: 0, End: 6}, {Start: 20, End: 26}, {Start: 40, End: 46}, {Start: 60, End: 66},
		}, nil
	}
	return tc
}

func TestVerifyFailureIsAdvisoryByDefault(t *testing.T) {
	layout, state := seedWorkdir(t)
	handler := NewHandler(testsupport.NewConfig(t), failingToolchain(), layout, nil)

	report, err := handler.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("advisory mode must not fail the stage: %v", err)
	}
	if state.QAScore != 67 || state.QAPassed {
		t.Fatalf("expected score 67 and failed verdict, got score=%d passed=%v", state.QAScore, state.QAPassed)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "quality score 67") {
		t.Fatalf("expected advisory warning, got %v", report.Warnings)
	}
}

func TestVerifyFailureBlocksWhenConfigured(t *testing.T) {
	layout, state := seedWorkdir(t)
	cfg := testsupport.NewConfig(t, func(c *config.Config) { c.QA.BlockOnFailure = true })
	handler := NewHandler(cfg, failingToolchain(), layout, nil)

	if _, err := handler.Execute(context.Background(), state); err == nil {
		t.Fatal("expected blocking failure")
	}
	// The verdict is still persisted for inspection.
	result, err := qa.Load(layout.QAResultPath())
	if err != nil {
		t.Fatalf("load qa result: %v", err)
	}
	if result.Score != 67 {
		t.Fatalf("score = %d, want 67", result.Score)
	}
	if state.QAScore != 67 {
		t.Fatalf("state score = %d, want 67", state.QAScore)
	}
}

func TestVerifyForbiddenTermsJoinBattery(t *testing.T) {
	layout, state := seedWorkdir(t)
	state.Input.ForbiddenTerms = []string{"lecture"}
	handler := NewHandler(testsupport.NewConfig(t), &testsupport.FakeToolchain{}, layout, nil)

	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}
	result, err := qa.Load(layout.QAResultPath())
	if err != nil {
		t.Fatalf("load qa result: %v", err)
	}
	if len(result.Checks) != 7 {
		t.Fatalf("forbidden terms should add a check, got %d", len(result.Checks))
	}
	// 6 of 7 checks pass; the transcript contains the forbidden term.
	if result.Score != 86 {
		t.Fatalf("score = %d, want 86", result.Score)
	}
}

func TestVerifyForbiddenTermsIgnoreCutSegments(t *testing.T) {
	layout, state := seedWorkdir(t)
	state.Input.ForbiddenTerms = []string{"lecture"}

	// The term appears only in a segment the recipe cuts, so the rendered
	// output never contains it.
	timeline := media.Timeline{DurationSeconds: 120, Segments: []media.Segment{
		{ID: "scene-001", Start: 0, End: 60, Kind: media.SegmentScene, Transcript: "a short recap"},
		{ID: "scene-002", Start: 60, End: 120, Kind: media.SegmentScene, Transcript: "the original lecture intro"},
	}}
	if err := media.SaveTimeline(timeline, layout.SegmentsJSONPath()); err != nil {
		t.Fatalf("save timeline: %v", err)
	}
	r := &recipe.Recipe{
		Version:        recipe.Version,
		SourceID:       "src",
		TargetDuration: 120,
		Operations: []recipe.SegmentOperation{
			{SegmentID: "scene-001", Kind: recipe.OpKeep, Start: 0, End: 60},
			{SegmentID: "scene-002", Kind: recipe.OpCut, Start: 60, End: 120},
		},
		Narration: &recipe.NarrationScript{Lines: []recipe.NarrationLine{{At: 0, Text: "welcome back"}}},
	}
	if err := recipe.SaveJSON(r, layout.RecipeJSONPath()); err != nil {
		t.Fatalf("save recipe: %v", err)
	}

	handler := NewHandler(testsupport.NewConfig(t), &testsupport.FakeToolchain{}, layout, nil)
	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}
	result, err := qa.Load(layout.QAResultPath())
	if err != nil {
		t.Fatalf("load qa result: %v", err)
	}
	if len(result.Checks) != 7 {
		t.Fatalf("forbidden terms should add a check, got %d", len(result.Checks))
	}
	if result.Score != 100 {
		t.Fatalf("cut-segment text must not trip the check, score = %d: %v", result.Score, result.Issues)
	}

	// The same term in a narration line does trip it.
	r.Narration.Lines = append(r.Narration.Lines, recipe.NarrationLine{At: 30, Text: "as the lecture said"})
	if err := recipe.SaveJSON(r, layout.RecipeJSONPath()); err != nil {
		t.Fatalf("save recipe: %v", err)
	}
	state.QAScore = 0
	if _, err := handler.Execute(context.Background(), state); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if state.QAScore != 86 {
		t.Fatalf("narration text should trip the check, score = %d", state.QAScore)
	}
}

func TestVerifyRequiresRenderedOutput(t *testing.T) {
	layout := workdir.NewLayout(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	handler := NewHandler(testsupport.NewConfig(t), &testsupport.FakeToolchain{}, layout, nil)
	state := pipeline.NewState("run", pipeline.RemakeInput{SourceLocator: "x", Goal: "g"}, layout.Root)

	if _, err := handler.Execute(context.Background(), state); err == nil {
		t.Fatal("expected failure without final.mp4")
	}
}
