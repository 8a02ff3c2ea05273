package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"remake/internal/config"
	"remake/internal/services"
	"remake/internal/workdir"
)

type fakeHandler struct {
	kind  StageKind
	calls int
	fn    func(ctx context.Context, state *State, call int) (*Report, error)
}

func (f *fakeHandler) Kind() StageKind { return f.kind }

func (f *fakeHandler) Execute(ctx context.Context, state *State) (*Report, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(ctx, state, f.calls)
	}
	return &Report{}, nil
}

type fixture struct {
	handlers Handlers
	byKind   map[StageKind]*fakeHandler
}

func newFixture() *fixture {
	f := &fixture{byKind: map[StageKind]*fakeHandler{}}
	add := func(kind StageKind) *fakeHandler {
		h := &fakeHandler{kind: kind}
		f.byKind[kind] = h
		return h
	}
	f.handlers = Handlers{
		RightsGate: add(StageRightsGate),
		Ingest:     add(StageIngest),
		Normalize:  add(StageNormalize),
		Understand: add(StageUnderstand),
		Plan:       add(StagePlan),
		Execute:    add(StageExecute),
		QA:         add(StageQA),
		Package:    add(StagePackage),
	}
	return f
}

func testInput() RemakeInput {
	return RemakeInput{
		SourceLocator: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Goal:          "make a 60 second recap",
		DurationSpec:  "60s",
	}
}

func newTestCoordinator(t *testing.T, f *fixture, opts ...CoordinatorOption) (*Coordinator, workdir.Layout) {
	t.Helper()
	layout := workdir.NewLayout(t.TempDir())
	cfg := config.Default()
	coordinator, err := NewCoordinator(&cfg, nil, f.handlers, nil, layout, opts...)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return coordinator, layout
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	f := newFixture()
	var order []StageKind
	for kind, handler := range f.byKind {
		k := kind
		handler.fn = func(ctx context.Context, state *State, call int) (*Report, error) {
			order = append(order, k)
			return &Report{Output: map[string]string{string(k): "done"}}, nil
		}
	}

	coordinator, layout := newTestCoordinator(t, f)
	output, err := coordinator.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !output.Completed {
		t.Fatal("expected completed run")
	}
	if len(order) != len(StageOrder) {
		t.Fatalf("expected %d stage executions, got %d", len(StageOrder), len(order))
	}
	for i, kind := range StageOrder {
		if order[i] != kind {
			t.Fatalf("stage %d ran %s, want %s", i, order[i], kind)
		}
	}

	state, err := Load(layout.StatePath())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Status != RunStatusCompleted {
		t.Fatalf("expected completed state, got %s", state.Status)
	}
	if len(state.Results) != len(StageOrder) {
		t.Fatalf("expected a result per stage, got %d", len(state.Results))
	}
	if state.Artifacts["plan"] != "done" {
		t.Fatalf("artifacts not merged: %+v", state.Artifacts)
	}
}

func TestRunRetriesTransientFailureOnce(t *testing.T) {
	f := newFixture()
	f.byKind[StageIngest].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		if call == 1 {
			return nil, services.Wrap(services.ErrExternalTool, "ingest", "download", "network hiccup", errors.New("dial timeout"))
		}
		return &Report{}, nil
	}

	coordinator, _ := newTestCoordinator(t, f)
	if _, err := coordinator.Run(context.Background(), testInput()); err != nil {
		t.Fatalf("run should recover after retry: %v", err)
	}
	if got := f.byKind[StageIngest].calls; got != 2 {
		t.Fatalf("expected 2 ingest attempts, got %d", got)
	}
	if got := f.byKind[StagePackage].calls; got != 1 {
		t.Fatalf("later stages should still run once, got %d", got)
	}
}

func TestRunRecordsEveryAttemptInHistory(t *testing.T) {
	f := newFixture()
	f.byKind[StageIngest].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		if call == 1 {
			return nil, services.Wrap(services.ErrExternalTool, "ingest", "download", "network hiccup", errors.New("dial timeout"))
		}
		return &Report{}, nil
	}

	coordinator, layout := newTestCoordinator(t, f)
	if _, err := coordinator.Run(context.Background(), testInput()); err != nil {
		t.Fatalf("run: %v", err)
	}

	state, err := Load(layout.StatePath())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	// One result per attempt: eight stages plus the failed ingest attempt.
	if len(state.Results) != len(StageOrder)+1 {
		t.Fatalf("expected %d results, got %d", len(StageOrder)+1, len(state.Results))
	}
	var ingest []StageResult
	for _, result := range state.Results {
		if result.Stage == StageIngest {
			ingest = append(ingest, result)
		}
	}
	if len(ingest) != 2 {
		t.Fatalf("expected both ingest attempts in history, got %+v", ingest)
	}
	if ingest[0].Status != StageStatusFailed || ingest[0].Attempts != 1 || ingest[0].Error == "" {
		t.Fatalf("first attempt should be recorded as failed: %+v", ingest[0])
	}
	if ingest[1].Status != StageStatusCompleted || ingest[1].Attempts != 2 {
		t.Fatalf("retry should be recorded as completed: %+v", ingest[1])
	}
	// History is append-only in stage order.
	for i := 1; i < len(state.Results); i++ {
		if StageIndex(state.Results[i].Stage) < StageIndex(state.Results[i-1].Stage) {
			t.Fatalf("history out of order at %d: %+v", i, state.Results)
		}
	}
}

func TestRunDoesNotRetryValidationFailure(t *testing.T) {
	f := newFixture()
	f.byKind[StageRightsGate].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		return nil, services.Wrap(services.ErrValidation, "rights_gate", "screen request", "duplication intent", nil)
	}

	coordinator, layout := newTestCoordinator(t, f)
	_, err := coordinator.Run(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if got := f.byKind[StageRightsGate].calls; got != 1 {
		t.Fatalf("validation failure must not be retried, got %d attempts", got)
	}
	if got := f.byKind[StageIngest].calls; got != 0 {
		t.Fatalf("failed run must not continue, ingest ran %d times", got)
	}

	state, err := Load(layout.StatePath())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Status != RunStatusFailed {
		t.Fatalf("expected failed state, got %s", state.Status)
	}
}

func TestRunFailsAfterRetriesExhausted(t *testing.T) {
	f := newFixture()
	f.byKind[StageExecute].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		return nil, services.Wrap(services.ErrExternalTool, "execute", "render", "ffmpeg exploded", nil)
	}

	coordinator, _ := newTestCoordinator(t, f)
	_, err := coordinator.Run(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	// Default policy is one retry, so two attempts total.
	if got := f.byKind[StageExecute].calls; got != 2 {
		t.Fatalf("expected 2 execute attempts, got %d", got)
	}
}

func TestResumeSkipsCompletedStages(t *testing.T) {
	f := newFixture()
	f.byKind[StageExecute].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		if call == 1 {
			return nil, services.Wrap(services.ErrValidation, "execute", "render", "bad recipe", nil)
		}
		return &Report{}, nil
	}

	coordinator, layout := newTestCoordinator(t, f)
	if _, err := coordinator.Run(context.Background(), testInput()); err == nil {
		t.Fatal("expected first run to fail at execute")
	}

	output, err := coordinator.Resume(context.Background())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !output.Completed {
		t.Fatal("expected resumed run to complete")
	}

	// Stages before execute ran only during the first pass.
	for _, kind := range []StageKind{StageRightsGate, StageIngest, StageNormalize, StageUnderstand, StagePlan} {
		if got := f.byKind[kind].calls; got != 1 {
			t.Fatalf("stage %s should not re-run on resume, got %d calls", kind, got)
		}
	}
	if got := f.byKind[StageExecute].calls; got != 2 {
		t.Fatalf("execute should re-run once on resume, got %d calls", got)
	}
	if got := f.byKind[StageQA].calls; got != 1 {
		t.Fatalf("qa should run during resume, got %d calls", got)
	}

	state, err := Load(layout.StatePath())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Status != RunStatusCompleted {
		t.Fatalf("expected completed state, got %s", state.Status)
	}
}

func TestRunRecordsWarningsWithStagePrefix(t *testing.T) {
	f := newFixture()
	f.byKind[StageQA].fn = func(ctx context.Context, state *State, call int) (*Report, error) {
		return &Report{Warnings: []string{"score 64 below threshold 70"}}, nil
	}

	coordinator, _ := newTestCoordinator(t, f)
	output, err := coordinator.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(output.Warnings) != 1 || !strings.HasPrefix(output.Warnings[0], "[qa] ") {
		t.Fatalf("expected stage-prefixed warning, got %v", output.Warnings)
	}
}

func TestStopAfterPlan(t *testing.T) {
	f := newFixture()
	coordinator, _ := newTestCoordinator(t, f, WithStopAfter(StagePlan))
	output, err := coordinator.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if output.Completed {
		t.Fatal("dry run must not report full completion")
	}
	if got := f.byKind[StageExecute].calls; got != 0 {
		t.Fatalf("execute must not run in a dry run, got %d calls", got)
	}
	if got := f.byKind[StagePlan].calls; got != 1 {
		t.Fatalf("plan should have run, got %d calls", got)
	}
}

func TestRunRejectsExistingState(t *testing.T) {
	f := newFixture()
	coordinator, layout := newTestCoordinator(t, f)
	if _, err := coordinator.Run(context.Background(), testInput()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := os.Stat(layout.StatePath()); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
	if _, err := coordinator.Run(context.Background(), testInput()); err == nil {
		t.Fatal("second run over existing state must fail")
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	coordinator, _ := newTestCoordinator(t, f)
	if _, err := coordinator.Run(context.Background(), RemakeInput{Goal: "g"}); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := coordinator.Run(context.Background(), RemakeInput{SourceLocator: "s"}); err == nil {
		t.Fatal("expected error for missing goal")
	}
}

func TestHandlersValidate(t *testing.T) {
	f := newFixture()
	incomplete := f.handlers
	incomplete.QA = nil
	if err := incomplete.Validate(); err == nil {
		t.Fatal("expected error for missing handler")
	}

	swapped := f.handlers
	swapped.Ingest = f.byKind[StagePlan]
	if err := swapped.Validate(); err == nil {
		t.Fatal("expected error for mismatched handler kind")
	}
}
