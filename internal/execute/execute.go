// Package execute renders the planned recipe with the media toolchain: clip
// extraction, asset generation, concatenation, loudness normalization, and
// optional subtitle burn-in.
package execute

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/recipe"
	"remake/internal/services"
	"remake/internal/workdir"
)

// Generator produces supplementary assets from prompts. Implemented by
// genasset.Client.
type Generator interface {
	Generate(ctx context.Context, prompt, kind, dest string) error
}

// Handler implements the execute stage.
type Handler struct {
	cfg       *config.Config
	tc        toolchain.Toolchain
	generator Generator
	layout    workdir.Layout
	logger    *slog.Logger
}

// NewHandler builds the execute stage. The generator may be nil, in which
// case generation prompts are skipped with a warning.
func NewHandler(cfg *config.Config, tc toolchain.Toolchain, generator Generator, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, tc: tc, generator: generator, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageExecute }

// Execute renders output/final.mp4 from the recipe.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	r, err := recipe.LoadJSON(h.layout.RecipeJSONPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "execute", "load recipe", "plan must run first", err)
	}
	source := state.Artifacts["source_video"]
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "execute", "resolve source", "no downloaded source recorded", nil)
	}

	assets := h.generateAssets(ctx, r, report, logger)

	clips, err := h.renderClips(ctx, r, source, assets, report)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, services.Wrap(services.ErrValidation, "execute", "render clips", "recipe kept no segments", nil)
	}

	current := filepath.Join(h.layout.TempDir(), "concat.mp4")
	if len(clips) == 1 {
		if err := copyFile(clips[0], current); err != nil {
			return nil, services.Wrap(services.ErrTransient, "execute", "assemble", "", err)
		}
	} else if err := h.tc.Concat(ctx, clips, current); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "execute", "concat clips", "", err)
	}

	normalized := filepath.Join(h.layout.TempDir(), "loudnorm.mp4")
	if err := h.tc.NormalizeLoudness(ctx, current, normalized); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("loudness normalization failed, keeping original audio: %v", err))
	} else {
		current = normalized
	}

	if captionPath, ok := h.layout.CaptionPath(); ok {
		subtitled := filepath.Join(h.layout.TempDir(), "subtitled.mp4")
		if err := h.tc.BurnSubtitles(ctx, current, captionPath, subtitled); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("subtitle burn-in failed, output has no burned subtitles: %v", err))
		} else {
			current = subtitled
		}
	}

	final := h.layout.FinalVideoPath()
	if err := copyFile(current, final); err != nil {
		return nil, services.Wrap(services.ErrTransient, "execute", "publish output", "", err)
	}

	state.OutputPath = final
	report.Output["final_video"] = final
	logger.Info("recipe rendered",
		slog.Int("clips", len(clips)),
		slog.String("output", final))
	return report, nil
}

// generateAssets runs every generation prompt. Failures never fail the
// stage; the asset is skipped and the render proceeds without it.
func (h *Handler) generateAssets(ctx context.Context, r *recipe.Recipe, report *pipeline.Report, logger *slog.Logger) map[string]string {
	assets := map[string]string{}
	for _, prompt := range r.Generation {
		if h.generator == nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("asset %s skipped: generation not configured", prompt.ID))
			continue
		}
		dest := h.assetPath(prompt)
		if err := h.generator.Generate(ctx, prompt.Prompt, string(prompt.Kind), dest); err != nil {
			logger.Warn("asset generation failed",
				slog.String("asset_id", prompt.ID),
				logging.Error(err))
			report.Warnings = append(report.Warnings, fmt.Sprintf("asset %s skipped: %v", prompt.ID, err))
			continue
		}
		assets[prompt.ID] = dest
		report.Output["asset_"+prompt.ID] = dest
	}
	return assets
}

func (h *Handler) assetPath(prompt recipe.GenerationPrompt) string {
	if prompt.Kind == recipe.AssetVideo {
		return filepath.Join(h.layout.SegmentsDir(), prompt.ID+".mp4")
	}
	return filepath.Join(h.layout.FramesDir(), prompt.ID+".png")
}

// renderClips cuts kept operations into clip files, in recipe order. Replace
// operations splice in a generated asset when one exists and are skipped
// with a warning otherwise.
func (h *Handler) renderClips(ctx context.Context, r *recipe.Recipe, source string, assets map[string]string, report *pipeline.Report) ([]string, error) {
	var clips []string
	index := 0
	for _, op := range r.Operations {
		switch op.Kind {
		case recipe.OpKeep, recipe.OpModify:
			index++
			dest := filepath.Join(h.layout.SegmentsDir(), fmt.Sprintf("clip-%03d-%s.mp4", index, op.SegmentID))
			speed := op.Speed
			if speed <= 0 {
				speed = 1
			}
			if err := h.tc.Cut(ctx, source, op.Start, op.End, speed, dest); err != nil {
				return nil, services.Wrap(services.ErrExternalTool, "execute", "cut segment",
					fmt.Sprintf("segment %s", op.SegmentID), err)
			}
			clips = append(clips, dest)
		case recipe.OpReplace:
			if asset, ok := assets[op.SegmentID]; ok {
				clips = append(clips, asset)
				continue
			}
			report.Warnings = append(report.Warnings, fmt.Sprintf("replacement for %s unavailable, segment dropped", op.SegmentID))
		}
	}
	return clips, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
