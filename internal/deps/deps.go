// Package deps verifies the external tools and credentials the pipeline
// needs before a run starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"remake/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements derives the dependency list from configuration. Required
// binaries block runs; optional ones degrade features.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "cutting, concatenation, rendering"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "media inspection"},
		{Name: "Downloader", Command: cfg.Tools.Downloader, Description: "platform video and caption retrieval"},
		{Name: "uvx", Command: cfg.Tools.UVX, Description: "speech-to-text fallback (WhisperX)", Optional: true},
	}
}

// CheckServices reports on configured API credentials. These are not
// binaries, so availability means the setting is present, not that the
// remote endpoint answered.
func CheckServices(cfg *config.Config) []Status {
	var results []Status

	llmStatus := Status{
		Name:        "LLM API",
		Description: "content analysis, planning, narration",
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		llmStatus.Detail = "api key not configured"
	} else if strings.TrimSpace(cfg.LLM.Model) == "" {
		llmStatus.Detail = "model not configured"
	} else {
		llmStatus.Available = true
	}
	results = append(results, llmStatus)

	genStatus := Status{
		Name:        "Generation API",
		Description: "thumbnails and supplementary footage",
		Optional:    true,
	}
	switch {
	case !cfg.Generation.Enabled:
		genStatus.Detail = "disabled; frame grabs will be used"
	case strings.TrimSpace(cfg.Generation.APIKey) == "":
		genStatus.Detail = "enabled but api key not configured"
	default:
		genStatus.Available = true
	}
	results = append(results, genStatus)

	return results
}

// MissingRequired returns the names of required dependencies that are
// unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
