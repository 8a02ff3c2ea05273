// Package ingest resolves, probes, and downloads the source video into the
// working directory. Captions are fetched best-effort here so later stages
// can work offline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/services"
	"remake/internal/workdir"
)

// Handler implements the ingest stage.
type Handler struct {
	cfg    *config.Config
	tc     toolchain.Toolchain
	layout workdir.Layout
	logger *slog.Logger
}

// NewHandler builds the ingest stage.
func NewHandler(cfg *config.Config, tc toolchain.Toolchain, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, tc: tc, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageIngest }

// Execute resolves the source, persists its metadata, downloads the video,
// and fetches captions when the platform offers them.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	sourceID, err := h.tc.ResolveID(state.Input.SourceLocator)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "resolve source", "", err)
	}
	state.SourceID = sourceID
	report.Output["source_id"] = sourceID

	metadata, err := h.tc.FetchMetadata(ctx, state.Input.SourceLocator)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ingest", "probe source", "", err)
	}
	if err := metadata.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "validate metadata", "", err)
	}
	if err := h.saveMetadata(metadata); err != nil {
		return nil, err
	}
	report.Output["metadata"] = h.layout.MetadataJSONPath()
	logger.Info("source probed",
		slog.String("title", metadata.Title),
		slog.Float64("duration_seconds", metadata.DurationSeconds))

	videoPath, err := h.tc.Download(ctx, state.Input.SourceLocator, h.layout.SourceDir())
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ingest", "download source", "", err)
	}
	report.Output["source_video"] = videoPath
	logger.Info("source downloaded", slog.String("path", videoPath))

	if !toolchain.IsLocalFile(state.Input.SourceLocator) {
		captionPath, err := h.tc.FetchCaptions(ctx, state.Input.SourceLocator, state.Input.Language, h.layout.SourceDir())
		if err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("caption fetch failed, transcript will use speech-to-text: %v", err))
		} else if captionPath != "" {
			report.Output["captions"] = captionPath
		}
	}

	return report, nil
}

func (h *Handler) saveMetadata(metadata any) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "encode metadata", "", err)
	}
	if err := os.WriteFile(h.layout.MetadataJSONPath(), append(data, '\n'), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "write metadata", "", err)
	}
	return nil
}
