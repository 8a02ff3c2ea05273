package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout maps the fixed directory structure under one run's working
// directory. All stages resolve artifact paths through it so the layout is
// defined in exactly one place.
type Layout struct {
	Root string `json:"root"`
}

// NewLayout returns a layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) SourceDir() string   { return filepath.Join(l.Root, "source") }
func (l Layout) SegmentsDir() string { return filepath.Join(l.Root, "segments") }
func (l Layout) FramesDir() string   { return filepath.Join(l.Root, "frames") }
func (l Layout) TempDir() string     { return filepath.Join(l.Root, "temp") }
func (l Layout) LogsDir() string     { return filepath.Join(l.Root, "logs") }
func (l Layout) OutputDir() string   { return filepath.Join(l.Root, "output") }

func (l Layout) StatePath() string          { return filepath.Join(l.Root, "state.json") }
func (l Layout) SegmentsJSONPath() string   { return filepath.Join(l.Root, "segments.json") }
func (l Layout) RecipeJSONPath() string     { return filepath.Join(l.Root, "recipe.json") }
func (l Layout) RecipeYAMLPath() string     { return filepath.Join(l.Root, "recipe.yaml") }
func (l Layout) QAResultPath() string       { return filepath.Join(l.Root, "qa-result.json") }
func (l Layout) AnalysisJSONPath() string   { return filepath.Join(l.Root, "analysis.json") }
func (l Layout) AnalysisReportPath() string { return filepath.Join(l.Root, "analysis.md") }

func (l Layout) MetadataJSONPath() string { return filepath.Join(l.SourceDir(), "metadata.json") }
func (l Layout) TranscriptPath() string   { return filepath.Join(l.SourceDir(), "transcript.txt") }
func (l Layout) CommandLogPath() string   { return filepath.Join(l.LogsDir(), "commands.log") }
func (l Layout) ChangelogPath() string    { return filepath.Join(l.LogsDir(), "changelog.md") }
func (l Layout) FinalVideoPath() string   { return filepath.Join(l.OutputDir(), "final.mp4") }
func (l Layout) ChaptersPath() string     { return filepath.Join(l.OutputDir(), "chapters.txt") }
func (l Layout) MetadataDocPath() string  { return filepath.Join(l.OutputDir(), "metadata.txt") }

// CaptionPath returns the caption file in the source directory, if one was
// fetched. Captions keep whatever extension the platform provided, so the
// lookup is a glob.
func (l Layout) CaptionPath() (string, bool) {
	for _, pattern := range []string{"captions*.srt", "captions*.vtt"} {
		matches, err := filepath.Glob(filepath.Join(l.SourceDir(), pattern))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], true
	}
	return "", false
}

// Ensure creates every directory in the layout.
func (l Layout) Ensure() error {
	if strings.TrimSpace(l.Root) == "" {
		return fmt.Errorf("workdir: empty root")
	}
	dirs := []string{
		l.Root,
		l.SourceDir(),
		l.SegmentsDir(),
		l.FramesDir(),
		l.TempDir(),
		l.LogsDir(),
		l.OutputDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workdir: create %s: %w", dir, err)
		}
	}
	return nil
}
