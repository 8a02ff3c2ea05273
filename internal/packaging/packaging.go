// Package packaging assembles the publishable bundle around the rendered
// video: subtitles, chapters, a thumbnail, and the metadata document. Only a
// missing final.mp4 fails the stage; every companion artifact degrades to a
// warning so a rendered video always ships.
package packaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"remake/internal/analysis"
	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/services"
	"remake/internal/services/transcribe"
	"remake/internal/workdir"
)

// thumbnailFallbackSeconds is where a frame is grabbed when no generated
// thumbnail exists.
const thumbnailFallbackSeconds = 5.0

// Handler implements the package stage.
type Handler struct {
	cfg    *config.Config
	tc     toolchain.Toolchain
	layout workdir.Layout
	logger *slog.Logger
}

// NewHandler builds the package stage.
func NewHandler(cfg *config.Config, tc toolchain.Toolchain, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, tc: tc, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StagePackage }

// Execute finishes the output directory into a publishable bundle.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	final := h.layout.FinalVideoPath()
	if _, err := os.Stat(final); err != nil {
		return nil, services.Wrap(services.ErrValidation, "package", "locate output", "execute must run first", err)
	}
	report.Output["final_video"] = final

	if path, err := h.writeSubtitles(state); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("subtitles omitted: %v", err))
	} else {
		report.Output["subtitles"] = path
	}

	result := h.loadAnalysis()
	if path, err := h.writeChapters(result); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("chapters omitted: %v", err))
	} else if path != "" {
		report.Output["chapters"] = path
	}

	if path, err := h.writeThumbnail(ctx, state, final); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("thumbnail omitted: %v", err))
	} else {
		report.Output["thumbnail"] = path
	}

	if path, err := h.writeMetadataDoc(state, result); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("metadata document omitted: %v", err))
	} else {
		report.Output["metadata_doc"] = path
	}

	if err := copyFile(h.layout.RecipeJSONPath(), filepath.Join(h.layout.OutputDir(), "recipe.json")); err == nil {
		report.Output["recipe"] = filepath.Join(h.layout.OutputDir(), "recipe.json")
	}
	for key, path := range map[string]string{
		"command_log": h.layout.CommandLogPath(),
		"changelog":   h.layout.ChangelogPath(),
	} {
		if _, err := os.Stat(path); err == nil {
			report.Output[key] = path
		}
	}

	state.OutputPath = final
	logger.Info("bundle packaged",
		slog.String("output_dir", h.layout.OutputDir()),
		slog.Int("artifacts", len(report.Output)))
	return report, nil
}

// writeSubtitles prefers the platform caption file and synthesizes cues from
// the transcript when none exists.
func (h *Handler) writeSubtitles(state *pipeline.State) (string, error) {
	dest := filepath.Join(h.layout.OutputDir(), "final.srt")

	if captionPath, ok := h.layout.CaptionPath(); ok {
		cues, err := transcribe.LoadSRT(captionPath)
		if err == nil && len(cues) > 0 {
			return dest, writeCues(dest, cues)
		}
	}

	data, err := os.ReadFile(h.layout.TranscriptPath())
	if err != nil {
		return "", fmt.Errorf("no captions and no transcript")
	}
	cues := synthesizeCues(string(data), state.TargetSeconds)
	if len(cues) == 0 {
		return "", fmt.Errorf("transcript is empty")
	}
	return dest, writeCues(dest, cues)
}

// synthesizeCues splits the transcript at sentence boundaries and spreads
// the cues evenly across the output duration.
func synthesizeCues(transcript string, durationSeconds float64) []transcribe.Cue {
	sentences := splitSentences(transcript)
	if len(sentences) == 0 {
		return nil
	}
	if durationSeconds <= 0 {
		durationSeconds = float64(len(sentences)) * 4
	}
	per := durationSeconds / float64(len(sentences))
	cues := make([]transcribe.Cue, 0, len(sentences))
	for i, sentence := range sentences {
		cues = append(cues, transcribe.Cue{
			Index: i + 1,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
			Text:  sentence,
		})
	}
	return cues
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range strings.TrimSpace(text) {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func writeCues(path string, cues []transcribe.Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := transcribe.WriteSRT(f, cues); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeChapters renders the analysis sections as a chapter list. No sections
// is not an error; the file is simply not produced.
func (h *Handler) writeChapters(result analysis.Result) (string, error) {
	if len(result.Content.Sections) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, section := range result.Content.Sections {
		fmt.Fprintf(&b, "%s %s\n", chapterTimestamp(section.Start), section.Title)
	}
	path := h.layout.ChaptersPath()
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func chapterTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// writeThumbnail reuses the generated asset when the render produced one and
// falls back to a frame grab from the final video.
func (h *Handler) writeThumbnail(ctx context.Context, state *pipeline.State, final string) (string, error) {
	dest := filepath.Join(h.layout.OutputDir(), "thumbnail.png")
	if asset := state.Artifacts["asset_thumbnail"]; asset != "" {
		if err := copyFile(asset, dest); err == nil {
			return dest, nil
		}
	}
	if err := h.tc.ExtractFrame(ctx, final, thumbnailFallbackSeconds, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// writeMetadataDoc renders the upload-ready metadata sheet.
func (h *Handler) writeMetadataDoc(state *pipeline.State, result analysis.Result) (string, error) {
	meta := h.loadSourceMetadata()

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = state.Input.Goal
	}
	title = cases.Title(language.English).String(title)

	description := strings.TrimSpace(result.Content.Summary)
	if description == "" {
		description = state.Input.Goal
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\n", title)
	fmt.Fprintf(&b, "Description:\n%s\n\n", description)
	if len(result.Content.KeyPoints) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(result.Content.KeyPoints, ", "))
	}
	fmt.Fprintf(&b, "Credits: remade from source %s\n", state.SourceID)
	b.WriteString("License: verify you hold the rights to redistribute the source material before publishing.\n")

	path := h.layout.MetadataDocPath()
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (h *Handler) loadAnalysis() analysis.Result {
	var result analysis.Result
	data, err := os.ReadFile(h.layout.AnalysisJSONPath())
	if err != nil {
		return result
	}
	_ = json.Unmarshal(data, &result)
	return result
}

func (h *Handler) loadSourceMetadata() media.VideoMetadata {
	var meta media.VideoMetadata
	data, err := os.ReadFile(h.layout.MetadataJSONPath())
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	return meta
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
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
