// Package normalize turns the raw download into a uniform internal
// representation: a timed transcript, a segment timeline with initial
// importance scores, and keyframes for the leading segments.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media"
	"remake/internal/media/toolchain"
	"remake/internal/pipeline"
	"remake/internal/services"
	"remake/internal/services/transcribe"
	"remake/internal/workdir"
)

const (
	// fallbackWindowSeconds segments the source when scene detection yields
	// nothing usable.
	fallbackWindowSeconds = 30.0
	// silenceMinSeconds is the detection floor for silence segments.
	silenceMinSeconds = 1.0
	// maxKeyframes bounds frame extraction to the leading segments.
	maxKeyframes = 20
)

// TranscriptAcquirer obtains a transcript with provenance. Implemented by
// transcribe.Service.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, captions transcribe.CaptionFetcher, audio transcribe.AudioExtractor, req transcribe.AcquireRequest) (transcribe.Transcript, []string, error)
}

// Handler implements the normalize stage.
type Handler struct {
	cfg         *config.Config
	tc          toolchain.Toolchain
	transcriber TranscriptAcquirer
	layout      workdir.Layout
	logger      *slog.Logger
}

// NewHandler builds the normalize stage.
func NewHandler(cfg *config.Config, tc toolchain.Toolchain, transcriber TranscriptAcquirer, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, tc: tc, transcriber: transcriber, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageNormalize }

// Execute builds the transcript and segment timeline for the downloaded
// source.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	videoPath := state.Artifacts["source_video"]
	if videoPath == "" {
		return nil, services.Wrap(services.ErrValidation, "normalize", "locate source", "ingest produced no video", nil)
	}

	metadata, err := h.tc.Probe(ctx, videoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "normalize", "probe video", "", err)
	}
	duration := metadata.DurationSeconds
	if duration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "normalize", "probe video", "source has no duration", nil)
	}

	transcript, warnings := h.acquireTranscript(ctx, state, videoPath)
	report.Warnings = append(report.Warnings, warnings...)

	segments, sceneWarnings := h.buildSegments(ctx, videoPath, duration, transcript)
	report.Warnings = append(report.Warnings, sceneWarnings...)

	h.extractKeyframes(ctx, videoPath, segments, report)

	media.SortSegments(segments)
	timeline := media.Timeline{
		DurationSeconds:  duration,
		TranscriptSource: transcript.Source,
		Segments:         segments,
	}
	if err := media.SaveTimeline(timeline, h.layout.SegmentsJSONPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "normalize", "persist timeline", "", err)
	}
	if err := os.WriteFile(h.layout.TranscriptPath(), []byte(transcript.Text+"\n"), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "normalize", "persist transcript", "", err)
	}

	report.Output["segments"] = h.layout.SegmentsJSONPath()
	report.Output["transcript"] = h.layout.TranscriptPath()
	report.Output["transcript_source"] = transcript.Source
	logger.Info("timeline built",
		slog.Int("segments", len(segments)),
		slog.String("transcript_source", transcript.Source),
		slog.Float64("duration_seconds", duration))
	return report, nil
}

// acquireTranscript prefers captions already fetched during ingest, then the
// caption platform, then speech-to-text. A missing transcript degrades to
// empty with a warning; later stages have deterministic fallbacks.
func (h *Handler) acquireTranscript(ctx context.Context, state *pipeline.State, videoPath string) (transcribe.Transcript, []string) {
	if captionPath, ok := h.layout.CaptionPath(); ok {
		cues, err := transcribe.LoadSRT(captionPath)
		if err == nil && len(cues) > 0 {
			return transcribe.Transcript{
				Text:   transcribe.JoinText(cues),
				Cues:   cues,
				Source: transcribe.SourceCaptions,
				Path:   captionPath,
			}, nil
		}
	}

	locator := state.Input.SourceLocator
	if toolchain.IsLocalFile(locator) {
		locator = ""
	}
	transcript, warnings, err := h.transcriber.Acquire(ctx, h.tc, h.tc, transcribe.AcquireRequest{
		Locator:    locator,
		VideoPath:  videoPath,
		CaptionDir: h.layout.SourceDir(),
		WorkDir:    h.layout.TempDir(),
		Language:   state.Input.Language,
	})
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("transcript unavailable, continuing without one: %v", err))
		return transcribe.Transcript{Source: "none"}, warnings
	}
	return transcript, warnings
}

func (h *Handler) buildSegments(ctx context.Context, videoPath string, duration float64, transcript transcribe.Transcript) ([]media.Segment, []string) {
	var warnings []string

	boundaries, err := h.tc.DetectScenes(ctx, videoPath)
	if err != nil || len(boundaries) == 0 {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("scene detection failed, using fixed %gs windows: %v", fallbackWindowSeconds, err))
		} else {
			warnings = append(warnings, fmt.Sprintf("no scene changes detected, using fixed %gs windows", fallbackWindowSeconds))
		}
		boundaries = fixedWindows(duration)
	}
	segments := sceneSegments(boundaries, duration)

	for i := range segments {
		segments[i].Transcript = transcriptSlice(transcript.Cues, segments[i].Start, segments[i].End)
	}
	scoreByTranscriptLength(segments)

	if silences, err := h.tc.DetectSilence(ctx, videoPath, silenceMinSeconds); err == nil {
		for i, interval := range silences {
			segments = append(segments, media.Segment{
				ID:    fmt.Sprintf("silence-%03d", i+1),
				Start: interval.Start,
				End:   clamp(interval.End, duration),
				Kind:  media.SegmentSilence,
			})
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("silence detection failed: %v", err))
	}

	for i, cue := range transcript.Cues {
		if cue.End <= cue.Start {
			continue
		}
		segments = append(segments, media.Segment{
			ID:         fmt.Sprintf("speech-%03d", i+1),
			Start:      cue.Start,
			End:        clamp(cue.End, duration),
			Kind:       media.SegmentSpeech,
			Transcript: cue.Text,
		})
	}

	return segments, warnings
}

func (h *Handler) extractKeyframes(ctx context.Context, videoPath string, segments []media.Segment, report *pipeline.Report) {
	extracted := 0
	for i := range segments {
		if segments[i].Kind != media.SegmentScene {
			continue
		}
		if extracted >= maxKeyframes {
			break
		}
		midpoint := segments[i].Start + segments[i].Duration()/2
		dest := filepath.Join(h.layout.FramesDir(), fmt.Sprintf("%s.jpg", segments[i].ID))
		if err := h.tc.ExtractFrame(ctx, videoPath, midpoint, dest); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("keyframe for %s failed: %v", segments[i].ID, err))
			continue
		}
		segments[i].KeyframePath = dest
		extracted++
	}
}

// fixedWindows produces boundaries every fallbackWindowSeconds.
func fixedWindows(duration float64) []float64 {
	var boundaries []float64
	for at := fallbackWindowSeconds; at < duration; at += fallbackWindowSeconds {
		boundaries = append(boundaries, at)
	}
	return boundaries
}

// sceneSegments converts boundary timestamps into contiguous segments
// covering [0, duration).
func sceneSegments(boundaries []float64, duration float64) []media.Segment {
	var cleaned []float64
	last := 0.0
	for _, b := range boundaries {
		if b <= last || b >= duration {
			continue
		}
		cleaned = append(cleaned, b)
		last = b
	}

	starts := append([]float64{0}, cleaned...)
	segments := make([]media.Segment, 0, len(starts))
	for i, start := range starts {
		end := duration
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		segments = append(segments, media.Segment{
			ID:    fmt.Sprintf("scene-%03d", i+1),
			Start: start,
			End:   end,
			Kind:  media.SegmentScene,
		})
	}
	return segments
}

// transcriptSlice joins cue text overlapping [start, end).
func transcriptSlice(cues []transcribe.Cue, start, end float64) string {
	var parts []string
	for _, cue := range cues {
		if cue.End <= start || cue.Start >= end {
			continue
		}
		if text := strings.TrimSpace(cue.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// scoreByTranscriptLength assigns initial importance scores in [0,1]
// proportional to how much is said in each segment.
func scoreByTranscriptLength(segments []media.Segment) {
	maxLen := 0
	for _, seg := range segments {
		if n := len(seg.Transcript); n > maxLen {
			maxLen = n
		}
	}
	if maxLen == 0 {
		return
	}
	for i := range segments {
		segments[i].Score = float64(len(segments[i].Transcript)) / float64(maxLen)
	}
}

func clamp(value, max float64) float64 {
	if value > max {
		return max
	}
	return value
}
