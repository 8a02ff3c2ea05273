package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// WorkRoot is where run working directories are created when the caller
	// does not pass --output.
	WorkRoot string `toml:"work_root"`
	// DataDir holds the run ledger database.
	DataDir string `toml:"data_dir"`
	// LogDir receives the global tool log (per-run logs live in the working dir).
	LogDir string `toml:"log_dir"`
}

// Tools names the external binaries the media toolchain shells out to.
type Tools struct {
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
	Downloader string `toml:"downloader"`
	UVX        string `toml:"uvx"`
}

// LLM contains the chat-completion endpoint settings used by the Understand
// and Plan stages.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Generation contains the generative asset service settings (thumbnails,
// supplementary footage).
type Generation struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ImageModel     string `toml:"image_model"`
	VideoModel     string `toml:"video_model"`
	PollSeconds    int    `toml:"poll_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains speech-to-text fallback settings.
type Transcription struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
}

// QA contains verification thresholds and the gating policy.
type QA struct {
	// MinScore is the aggregate score (0-100) required for an overall pass.
	MinScore int `toml:"min_score"`
	// DurationTolerancePct is the allowed deviation from target duration.
	DurationTolerancePct float64 `toml:"duration_tolerance_pct"`
	// BlockOnFailure turns a failing QA verdict into a stage failure instead
	// of a warning. Off by default: QA is advisory and a human reviews the
	// packaged output before publishing.
	BlockOnFailure bool `toml:"block_on_failure"`
}

// Workflow contains coordinator timing and retry settings.
type Workflow struct {
	// MaxStageRetries is how many times a failed stage is re-attempted.
	MaxStageRetries int `toml:"max_stage_retries"`
	// ProbeTimeout bounds metadata probes and quick analyses (seconds).
	ProbeTimeout int `toml:"probe_timeout"`
	// DownloadTimeout bounds source downloads (seconds).
	DownloadTimeout int `toml:"download_timeout"`
	// RenderTimeout bounds cut/concat/filter/burn-in operations (seconds).
	RenderTimeout int `toml:"render_timeout"`
	// GenerationTimeout bounds generative asset jobs (seconds).
	GenerationTimeout int `toml:"generation_timeout"`
	// TranscribeTimeout bounds speech-to-text runs (seconds).
	TranscribeTimeout int `toml:"transcribe_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Rights contains rights-gate policy settings.
type Rights struct {
	// ExtraDeniedTerms extends the built-in duplication-intent denylist.
	ExtraDeniedTerms []string `toml:"extra_denied_terms"`
}

// Config encapsulates all configuration values for the remake pipeline.
//
// Configuration sections by subsystem:
//   - Paths: working/data/log directories
//   - Tools: external binary names for the media toolchain
//   - LLM: chat-completion endpoint for analysis and planning
//   - Generation: generative asset service for thumbnails and b-roll
//   - Transcription: speech-to-text fallback settings
//   - QA: verification thresholds and gating policy
//   - Workflow: retries and per-operation-class timeouts
//   - Logging: log format and level
//   - Rights: remake-intent denylist extensions
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	LLM           LLM           `toml:"llm"`
	Generation    Generation    `toml:"generation"`
	Transcription Transcription `toml:"transcription"`
	QA            QA            `toml:"qa"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Rights        Rights        `toml:"rights"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/remake/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("remake.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample config to the given path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline needs at startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkRoot, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
