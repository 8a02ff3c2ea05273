// Package verify runs the quality battery against the rendered output and
// records the verdict. A failing battery only blocks packaging when the
// configuration says so; by default it is surfaced as a warning.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/qa"
	"remake/internal/recipe"
	"remake/internal/services"
	"remake/internal/workdir"
)

// Detection floors for the interval probes, in seconds. Shorter stretches
// are normal editing artifacts and not worth flagging.
const (
	blackProbeSeconds   = 2.0
	silenceProbeSeconds = 5.0
)

// Handler implements the qa stage.
type Handler struct {
	cfg    *config.Config
	tc     toolchain.Toolchain
	layout workdir.Layout
	logger *slog.Logger
}

// NewHandler builds the qa stage.
func NewHandler(cfg *config.Config, tc toolchain.Toolchain, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, tc: tc, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageQA }

// Execute measures the rendered output and evaluates the quality battery.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	output := state.OutputPath
	if output == "" {
		output = h.layout.FinalVideoPath()
	}
	if _, err := os.Stat(output); err != nil {
		return nil, services.Wrap(services.ErrValidation, "qa", "locate output", "execute must run first", err)
	}

	obs, err := h.observe(ctx, output, state)
	if err != nil {
		return nil, err
	}

	result := qa.Evaluate(obs, qa.Policy{
		MinScore:             h.cfg.QA.MinScore,
		DurationTolerancePct: h.cfg.QA.DurationTolerancePct,
	})
	if err := qa.Save(result, h.layout.QAResultPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "qa", "persist result", "", err)
	}

	state.QAScore = result.Score
	state.QAPassed = result.Passed
	report.Output["qa_result"] = h.layout.QAResultPath()
	report.Output["qa_score"] = fmt.Sprintf("%d", result.Score)
	logger.Info("quality battery evaluated",
		slog.Int("score", result.Score),
		slog.Bool("passed", result.Passed),
		slog.Int("checks", len(result.Checks)))

	if !result.Passed {
		detail := fmt.Sprintf("quality score %d below threshold %d: %s",
			result.Score, effectiveMinScore(h.cfg.QA.MinScore), strings.Join(result.Issues, "; "))
		if h.cfg.QA.BlockOnFailure {
			return nil, services.Wrap(services.ErrValidation, "qa", "evaluate battery", detail, nil)
		}
		report.Warnings = append(report.Warnings, detail)
	}
	return report, nil
}

// observe gathers every measurement the battery evaluates. Probe failures
// fail the stage; the battery cannot score an unmeasured artifact.
func (h *Handler) observe(ctx context.Context, output string, state *pipeline.State) (qa.Observation, error) {
	var obs qa.Observation

	meta, err := h.tc.Probe(ctx, output)
	if err != nil {
		return obs, services.Wrap(services.ErrExternalTool, "qa", "probe output", "", err)
	}
	audio, err := h.tc.MeasureAudio(ctx, output)
	if err != nil {
		return obs, services.Wrap(services.ErrExternalTool, "qa", "measure audio", "", err)
	}
	black, err := h.tc.DetectBlackFrames(ctx, output, blackProbeSeconds)
	if err != nil {
		return obs, services.Wrap(services.ErrExternalTool, "qa", "detect black frames", "", err)
	}
	silence, err := h.tc.DetectSilence(ctx, output, silenceProbeSeconds)
	if err != nil {
		return obs, services.Wrap(services.ErrExternalTool, "qa", "detect silence", "", err)
	}

	target := state.TargetSeconds
	if target <= 0 {
		target = meta.DurationSeconds
	}

	obs = qa.Observation{
		DurationSeconds:  meta.DurationSeconds,
		TargetSeconds:    target,
		Audio:            audio,
		BlackIntervals:   black,
		SilenceIntervals: silence,
		Width:            meta.Width,
		Height:           meta.Height,
		Transcript:       h.outputTranscript(),
		ForbiddenTerms:   state.Input.ForbiddenTerms,
	}
	return obs, nil
}

// outputTranscript assembles the text that actually survives the edit: the
// transcripts of kept segments plus any narration lines. Text from cut
// segments never reaches the output, so it must not trip the forbidden-terms
// check. When no recipe exists the source transcript is the best available
// stand-in.
func (h *Handler) outputTranscript() string {
	r, err := recipe.LoadJSON(h.layout.RecipeJSONPath())
	if err != nil {
		return h.sourceTranscript()
	}

	var parts []string
	if timeline, err := media.LoadTimeline(h.layout.SegmentsJSONPath()); err == nil {
		byID := make(map[string]media.Segment, len(timeline.Segments))
		for _, seg := range timeline.Segments {
			byID[seg.ID] = seg
		}
		for _, op := range r.KeptOperations() {
			if seg, ok := byID[op.SegmentID]; ok && seg.Transcript != "" {
				parts = append(parts, seg.Transcript)
			}
		}
	}
	if r.Narration != nil {
		for _, line := range r.Narration.Lines {
			parts = append(parts, line.Text)
		}
	}
	if len(parts) == 0 {
		return h.sourceTranscript()
	}
	return strings.Join(parts, "\n")
}

func (h *Handler) sourceTranscript() string {
	data, err := os.ReadFile(h.layout.TranscriptPath())
	if err != nil {
		return ""
	}
	return string(data)
}

func effectiveMinScore(minScore int) int {
	if minScore <= 0 {
		return 70
	}
	return minScore
}
