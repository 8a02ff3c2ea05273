// Package understand derives semantic and stylistic knowledge about the
// source: an LLM content analysis with a deterministic fallback, a computed
// style fingerprint, and re-scored segment importance.
package understand

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"remake/internal/analysis"
	"remake/internal/config"
	"remake/internal/logging"
	"remake/internal/media"
	"remake/internal/pipeline"
	"remake/internal/services"
	"remake/internal/services/llm"
	"remake/internal/workdir"
)

// transcriptPromptLimit bounds how much transcript is sent to the model.
const transcriptPromptLimit = 12000

// Completer is the LLM surface this stage needs. Implemented by llm.Client.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Handler implements the understand stage.
type Handler struct {
	cfg    *config.Config
	llm    Completer
	layout workdir.Layout
	logger *slog.Logger
}

// NewHandler builds the understand stage. The completer may be nil, in which
// case analysis always uses the deterministic fallback.
func NewHandler(cfg *config.Config, completer Completer, layout workdir.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{cfg: cfg, llm: completer, layout: layout, logger: logger}
}

// Kind implements pipeline.Handler.
func (h *Handler) Kind() pipeline.StageKind { return pipeline.StageUnderstand }

// Execute analyzes the source and re-scores the timeline.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Report, error) {
	logger := logging.WithContext(ctx, h.logger)
	report := &pipeline.Report{Output: map[string]string{}}

	timeline, err := media.LoadTimeline(h.layout.SegmentsJSONPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "understand", "load timeline", "normalize must run first", err)
	}
	transcriptBytes, err := os.ReadFile(h.layout.TranscriptPath())
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "understand", "load transcript", "normalize must run first", err)
	}
	transcript := strings.TrimSpace(string(transcriptBytes))

	content, warning := h.analyzeContent(ctx, state, transcript)
	if warning != "" {
		report.Warnings = append(report.Warnings, warning)
	}

	style := analysis.Fingerprint(timeline.Segments, timeline.DurationSeconds)
	result := analysis.Result{Content: content, Style: style}

	rescore(timeline.Segments, content.KeyPoints)
	if err := media.SaveTimeline(timeline, h.layout.SegmentsJSONPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "understand", "persist timeline", "", err)
	}
	if err := saveResult(result, h.layout.AnalysisJSONPath()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "understand", "persist analysis", "", err)
	}
	if err := os.WriteFile(h.layout.AnalysisReportPath(), []byte(renderReport(result)), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "understand", "persist report", "", err)
	}

	report.Output["analysis"] = h.layout.AnalysisJSONPath()
	report.Output["analysis_report"] = h.layout.AnalysisReportPath()
	report.Output["structure"] = content.Structure
	report.Output["tempo"] = style.Tempo
	logger.Info("source analyzed",
		slog.String("structure", content.Structure),
		slog.String("analysis_source", content.Source),
		slog.String("tempo", style.Tempo))
	return report, nil
}

// llmAnalysisPayload mirrors the JSON shape requested from the model.
type llmAnalysisPayload struct {
	Summary        string             `json:"summary"`
	Structure      string             `json:"structure"`
	Sections       []analysis.Section `json:"sections"`
	KeyPoints      []string           `json:"key_points"`
	Tone           string             `json:"tone"`
	TargetAudience string             `json:"target_audience"`
}

func (h *Handler) analyzeContent(ctx context.Context, state *pipeline.State, transcript string) (analysis.ContentAnalysis, string) {
	if h.llm == nil {
		return analysis.FallbackAnalysis(transcript), "no llm configured, using transcript-derived analysis"
	}

	payload, err := h.llm.CompleteJSON(ctx, analysisSystemPrompt, buildAnalysisUserPrompt(state, transcript))
	if err != nil {
		return analysis.FallbackAnalysis(transcript), fmt.Sprintf("content analysis degraded to fallback: %v", err)
	}
	var parsed llmAnalysisPayload
	if err := llm.DecodeLLMJSON(payload, &parsed); err != nil {
		return analysis.FallbackAnalysis(transcript), fmt.Sprintf("content analysis payload unusable, using fallback: %v", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return analysis.FallbackAnalysis(transcript), "content analysis returned no summary, using fallback"
	}

	return analysis.ContentAnalysis{
		Summary:        strings.TrimSpace(parsed.Summary),
		Structure:      analysis.NormalizeStructure(parsed.Structure),
		Sections:       parsed.Sections,
		KeyPoints:      parsed.KeyPoints,
		Tone:           strings.TrimSpace(parsed.Tone),
		TargetAudience: strings.TrimSpace(parsed.TargetAudience),
		Source:         "llm",
	}, ""
}

// rescore blends each scene segment's transcript-length score with how many
// key points it covers. Weights keep the result in [0,1].
func rescore(segments []media.Segment, keyPoints []string) {
	if len(keyPoints) == 0 {
		return
	}
	for i := range segments {
		if segments[i].Kind != media.SegmentScene {
			continue
		}
		covered := 0
		lowered := strings.ToLower(segments[i].Transcript)
		for _, point := range keyPoints {
			if coversKeyPoint(lowered, point) {
				covered++
			}
		}
		bonus := float64(covered) / float64(len(keyPoints))
		segments[i].Score = segments[i].Score*0.5 + bonus*0.5
	}
}

// coversKeyPoint reports whether a segment transcript mentions at least half
// of a key point's significant words.
func coversKeyPoint(transcript, keyPoint string) bool {
	if transcript == "" {
		return false
	}
	words := strings.Fields(strings.ToLower(keyPoint))
	significant := 0
	matched := 0
	for _, word := range words {
		if len(word) < 4 {
			continue
		}
		significant++
		if strings.Contains(transcript, word) {
			matched++
		}
	}
	if significant == 0 {
		return false
	}
	return matched*2 >= significant
}
