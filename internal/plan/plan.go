// Package plan turns the analyzed timeline into a declarative edit recipe:
// segment selection against the target duration, an optional narration
// draft, timeline placement, and generation prompts.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"remake/internal/analysis"
	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media"
	"remake/internal/pipeline"
	"remake/internal/recipe"
	"remake/internal/services"
	"remake/internal/workdir"
)

// Handler implements the plan stage.
type Handler struct {
	cfg    *config.Config
	llm    Completer
	layout workdir.Layout
	logger *slog.Logger
}

// NewHandler builds the plan stage. The completer may be nil; the recipe is
// then produced without narration.
func NewHandler(cfg *config.Config, completer Completer, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, llm: completer, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StagePlan }

// Execute produces recipe.json and recipe.yaml from the scored timeline.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	timeline, err := media.LoadTimeline(h.layout.SegmentsJSONPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "plan", "load timeline", "normalize must run first", err)
	}
	result, err := loadAnalysis(h.layout.AnalysisJSONPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "plan", "load analysis", "understand must run first", err)
	}

	target, err := ParseDurationSpec(state.Input.DurationSpec, timeline.DurationSeconds)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "plan", "parse duration", "", err)
	}
	if target <= 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "parse duration",
			fmt.Sprintf("source duration %.2fs leaves nothing to plan", timeline.DurationSeconds), nil)
	}
	strategy := ClassifyStrategy(target, timeline.DurationSeconds)

	r := &recipe.Recipe{
		Version:          recipe.Version,
		SourceID:         state.SourceID,
		CreatedAt:        time.Now().UTC(),
		OriginalDuration: timeline.DurationSeconds,
		TargetDuration:   target,
		Strategy:         strategy,
		Operations:       selectOperations(timeline.Segments, target, strategy),
		Generation:       generationPrompts(result.Content, state.Input.Goal, target),
		Tools:            []string{"ffmpeg"},
		RightsVerified:   true,
	}
	r.Narration = draftNarration(ctx, h.llm, state, result.Content, target)
	if r.Narration == nil && h.llm != nil {
		report.Warnings = append(report.Warnings, "narration draft unavailable, recipe has none")
	}
	r.Timeline = buildTimeline(r)
	r.Notes = append(r.Notes,
		fmt.Sprintf("strategy %s for %.0fs -> %.0fs", strategy, timeline.DurationSeconds, target),
		fmt.Sprintf("planned output %.1fs across %d kept segments", r.PlannedOutputDuration(), len(r.KeptOperations())))

	if err := r.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "plan", "validate recipe", "", err)
	}
	if err := recipe.SaveJSON(r, h.layout.RecipeJSONPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "plan", "persist recipe", "", err)
	}
	if err := recipe.SaveYAML(r, h.layout.RecipeYAMLPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "plan", "persist recipe", "", err)
	}

	state.TargetSeconds = target
	report.Output["recipe_json"] = h.layout.RecipeJSONPath()
	report.Output["recipe_yaml"] = h.layout.RecipeYAMLPath()
	report.Output["strategy"] = strategy
	logger.Info("edit recipe planned",
		slog.String("strategy", strategy),
		slog.Float64("target_seconds", target),
		slog.Int("operations", len(r.Operations)),
		slog.Int("kept", len(r.KeptOperations())))
	return report, nil
}

func loadAnalysis(path string) (analysis.Result, error) {
	var result analysis.Result
	data, err := os.ReadFile(path)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}
