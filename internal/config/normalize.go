package config

import (
	"os"
	"strings"
)

// normalize expands paths, applies environment overrides, and fills gaps left
// by partial config files.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkRoot, err = expandPath(c.Paths.WorkRoot); err != nil {
		return err
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("REMAKE_LLM_API_KEY"))
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = strings.TrimSpace(os.Getenv("REMAKE_GENERATION_API_KEY"))
	}

	if c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg); c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	if c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe); c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	if c.Tools.Downloader = strings.TrimSpace(c.Tools.Downloader); c.Tools.Downloader == "" {
		c.Tools.Downloader = defaultDownloader
	}
	if c.Tools.UVX = strings.TrimSpace(c.Tools.UVX); c.Tools.UVX == "" {
		c.Tools.UVX = defaultUVX
	}

	if c.QA.MinScore == 0 {
		c.QA.MinScore = defaultQAMinScore
	}
	if c.QA.DurationTolerancePct == 0 {
		c.QA.DurationTolerancePct = defaultQADurationTolPct
	}
	if c.Workflow.MaxStageRetries < 0 {
		c.Workflow.MaxStageRetries = 0
	}
	applyTimeoutDefault(&c.Workflow.ProbeTimeout, defaultProbeTimeout)
	applyTimeoutDefault(&c.Workflow.DownloadTimeout, defaultDownloadTimeout)
	applyTimeoutDefault(&c.Workflow.RenderTimeout, defaultRenderTimeout)
	applyTimeoutDefault(&c.Workflow.GenerationTimeout, defaultGenerationTimeout)
	applyTimeoutDefault(&c.Workflow.TranscribeTimeout, defaultTranscribeTimeout)

	normalized := make([]string, 0, len(c.Rights.ExtraDeniedTerms))
	for _, term := range c.Rights.ExtraDeniedTerms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			normalized = append(normalized, term)
		}
	}
	c.Rights.ExtraDeniedTerms = normalized

	return nil
}

func applyTimeoutDefault(value *int, fallback int) {
	if *value <= 0 {
		*value = fallback
	}
}
