package plan

import (
	"context"
	"fmt"
	"strings"

	"remake/internal/analysis"
	"remake/internal/pipeline"
	"remake/internal/recipe"
	"remake/internal/services/llm"
)

// Completer is the LLM surface the planner needs. Implemented by llm.Client.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const narrationSystemPrompt = `You draft replacement narration for a remade video.
Respond with JSON only, using this schema:
{
  "language": "ISO 639-1 code",
  "lines": [{"at": 0.0, "text": "one spoken sentence"}]
}
Timestamps are output-time seconds and must be ascending. Keep lines short
enough to speak in the gap before the next one.`

func buildNarrationUserPrompt(state *pipeline.State, content analysis.ContentAnalysis, targetSeconds float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Remake goal: %s\n", state.Input.Goal)
	fmt.Fprintf(&b, "Output duration: %.0f seconds\n", targetSeconds)
	if state.Input.Language != "" {
		fmt.Fprintf(&b, "Narration language: %s\n", state.Input.Language)
	}
	if state.Input.Persona != "" {
		fmt.Fprintf(&b, "Narrator persona: %s\n", state.Input.Persona)
	}
	if state.Input.StoryInstructions != "" {
		fmt.Fprintf(&b, "Story instructions: %s\n", state.Input.StoryInstructions)
	}
	fmt.Fprintf(&b, "Source summary: %s\n", content.Summary)
	if len(content.KeyPoints) > 0 {
		b.WriteString("Key points to cover:\n")
		for _, point := range content.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
	}
	return b.String()
}

// draftNarration asks the model for a narration script. A missing completer,
// a transport error, or an unusable payload all result in no narration; the
// recipe stays valid without one.
func draftNarration(ctx context.Context, completer Completer, state *pipeline.State, content analysis.ContentAnalysis, targetSeconds float64) *recipe.NarrationScript {
	if completer == nil {
		return nil
	}
	payload, err := completer.CompleteJSON(ctx, narrationSystemPrompt, buildNarrationUserPrompt(state, content, targetSeconds))
	if err != nil {
		return nil
	}
	var script recipe.NarrationScript
	if err := llm.DecodeLLMJSON(payload, &script); err != nil {
		return nil
	}
	if len(script.Lines) == 0 {
		return nil
	}
	for _, line := range script.Lines {
		if strings.TrimSpace(line.Text) == "" || line.At < 0 {
			return nil
		}
	}
	return &script
}

func narrationRef(index int) string {
	return fmt.Sprintf("narration-%03d", index+1)
}

// brollPromptThreshold is the output duration above which a supplementary
// b-roll clip is worth generating.
const brollPromptThreshold = 60.0

// generationPrompts always requests a thumbnail; longer outputs also get one
// b-roll clip prompt.
func generationPrompts(content analysis.ContentAnalysis, goal string, targetSeconds float64) []recipe.GenerationPrompt {
	subject := strings.TrimSpace(content.Summary)
	if subject == "" {
		subject = goal
	}
	prompts := []recipe.GenerationPrompt{{
		ID:     "thumbnail",
		Kind:   recipe.AssetImage,
		Prompt: fmt.Sprintf("Eye-catching video thumbnail for: %s", subject),
		At:     0,
	}}
	if targetSeconds > brollPromptThreshold {
		prompts = append(prompts, recipe.GenerationPrompt{
			ID:     "broll-001",
			Kind:   recipe.AssetVideo,
			Prompt: fmt.Sprintf("Short b-roll clip illustrating: %s", subject),
			At:     targetSeconds / 2,
		})
	}
	return prompts
}
