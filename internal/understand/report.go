package understand

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"remake/internal/analysis"
)

func saveResult(result analysis.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// renderReport produces the human-readable analysis companion.
func renderReport(result analysis.Result) string {
	var b strings.Builder
	b.WriteString("# Source analysis\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Content.Summary)
	fmt.Fprintf(&b, "- Structure: %s\n", result.Content.Structure)
	if result.Content.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", result.Content.Tone)
	}
	if result.Content.TargetAudience != "" {
		fmt.Fprintf(&b, "- Audience: %s\n", result.Content.TargetAudience)
	}
	fmt.Fprintf(&b, "- Tempo: %s (%.1f cuts/min)\n", result.Style.Tempo, result.Style.CutsPerMinute)
	fmt.Fprintf(&b, "- Voice/music/effects: %.0f%% / %.0f%% / %.0f%%\n",
		result.Style.VoiceRatio*100, result.Style.MusicRatio*100, result.Style.EffectsRatio*100)

	if len(result.Content.Sections) > 0 {
		b.WriteString("\n## Sections\n\n")
		for _, section := range result.Content.Sections {
			fmt.Fprintf(&b, "- %s (%.0fs-%.0fs)", section.Title, section.Start, section.End)
			if section.Purpose != "" {
				fmt.Fprintf(&b, ": %s", section.Purpose)
			}
			b.WriteString("\n")
		}
	}
	if len(result.Content.KeyPoints) > 0 {
		b.WriteString("\n## Key points\n\n")
		for _, point := range result.Content.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
	}
	return b.String()
}
