package understand

import (
	"fmt"
	"strings"

	"remake/internal/pipeline"
)

const analysisSystemPrompt = `You analyze video transcripts for an editing system.
Respond with JSON only, using this schema:
{
  "summary": "2-4 sentence summary of the content",
  "structure": "educational|entertainment|news|documentary|vlog|other",
  "sections": [{"title": "...", "start": 0.0, "end": 0.0, "purpose": "..."}],
  "key_points": ["..."],
  "tone": "...",
  "target_audience": "..."
}
Section times are seconds from the start. Use the transcript's own language for text fields.`

func buildAnalysisUserPrompt(state *pipeline.State, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Remake goal: %s\n", state.Input.Goal)
	if state.Input.Language != "" {
		fmt.Fprintf(&b, "Content language: %s\n", state.Input.Language)
	}
	b.WriteString("Transcript:\n")
	b.WriteString(truncateRunes(transcript, transcriptPromptLimit))
	return b.String()
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
