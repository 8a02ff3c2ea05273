package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"remake/internal/config"
	"remake/internal/execute"
	"remake/internal/ingest"
	"remake/internal/logging"
	"remake/internal/media/toolchain"
	"remake/internal/normalize"
	"remake/internal/packaging"
	"remake/internal/pipeline"
	"remake/internal/plan"
	"remake/internal/rights"
	"remake/internal/runledger"
	"remake/internal/services/genasset"
	"remake/internal/services/llm"
	"remake/internal/services/transcribe"
	"remake/internal/understand"
	"remake/internal/verify"
	"remake/internal/workdir"
)

func newLogger(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "remake.log"),
		},
	})
}

// buildCoordinator wires the full stage set over one working directory. The
// returned ledger must be closed by the caller.
func buildCoordinator(cfg *config.Config, logger *slog.Logger, workDir string, opts ...pipeline.CoordinatorOption) (*pipeline.Coordinator, *runledger.Store, error) {
	layout := workdir.NewLayout(workDir)

	ledger, err := runledger.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open run ledger: %w", err)
	}

	tc := toolchain.New(toolchain.Binaries{
		FFmpeg:     cfg.Tools.FFmpeg,
		FFprobe:    cfg.Tools.FFprobe,
		Downloader: cfg.Tools.Downloader,
	}, toolchain.NewCommandLog(layout.CommandLogPath()))

	transcriber := transcribe.NewService(transcribe.Config{
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
	}, cfg.Tools.UVX)

	var understandCompleter understand.Completer
	var planCompleter plan.Completer
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
		understandCompleter = client
		planCompleter = client
	}

	var generator execute.Generator
	if cfg.Generation.Enabled {
		generator = genasset.NewClient(genasset.Config{
			APIKey:         cfg.Generation.APIKey,
			BaseURL:        cfg.Generation.BaseURL,
			ImageModel:     cfg.Generation.ImageModel,
			VideoModel:     cfg.Generation.VideoModel,
			PollSeconds:    cfg.Generation.PollSeconds,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		})
	}

	handlers := pipeline.Handlers{
		RightsGate: rights.NewHandler(cfg, logger),
		Ingest:     ingest.NewHandler(cfg, tc, layout, logger),
		Normalize:  normalize.NewHandler(cfg, tc, transcriber, layout, logger),
		Understand: understand.NewHandler(cfg, understandCompleter, layout, logger),
		Plan:       plan.NewHandler(cfg, planCompleter, layout, logger),
		Execute:    execute.NewHandler(cfg, tc, generator, layout, logger),
		QA:         verify.NewHandler(cfg, tc, layout, logger),
		Package:    packaging.NewHandler(cfg, tc, layout, logger),
	}

	coordinator, err := pipeline.NewCoordinator(cfg, logger, handlers, ledger, layout, opts...)
	if err != nil {
		_ = ledger.Close()
		return nil, nil, err
	}
	return coordinator, ledger, nil
}
