package analysis

import "strings"

// Structure classifies the overall shape of the source content.
const (
	StructureEducational   = "educational"
	StructureEntertainment = "entertainment"
	StructureNews          = "news"
	StructureDocumentary   = "documentary"
	StructureVlog          = "vlog"
	StructureOther         = "other"
	StructureUnknown       = "unknown"
)

// Section is one named portion of the source with time bounds.
type Section struct {
	Title   string  `json:"title"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Purpose string  `json:"purpose,omitempty"`
}

// ContentAnalysis is the semantic summary of the source. Source records
// whether it came from the LLM or the deterministic fallback.
type ContentAnalysis struct {
	Summary        string    `json:"summary"`
	Structure      string    `json:"structure"`
	Sections       []Section `json:"sections,omitempty"`
	KeyPoints      []string  `json:"key_points,omitempty"`
	Tone           string    `json:"tone,omitempty"`
	TargetAudience string    `json:"target_audience,omitempty"`
	Source         string    `json:"source"`
}

// NormalizeStructure maps free-form structure labels onto the closed set.
func NormalizeStructure(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StructureEducational:
		return StructureEducational
	case StructureEntertainment:
		return StructureEntertainment
	case StructureNews:
		return StructureNews
	case StructureDocumentary:
		return StructureDocumentary
	case StructureVlog:
		return StructureVlog
	case StructureOther:
		return StructureOther
	case StructureUnknown, "":
		return StructureUnknown
	default:
		return StructureOther
	}
}

// FallbackAnalysis builds a deterministic analysis from the transcript alone,
// used when the LLM call fails or returns an unusable payload.
func FallbackAnalysis(transcript string) ContentAnalysis {
	summary := strings.TrimSpace(transcript)
	const limit = 500
	if runes := []rune(summary); len(runes) > limit {
		summary = string(runes[:limit]) + "..."
	}
	if summary == "" {
		summary = "No transcript available."
	}
	return ContentAnalysis{
		Summary:   summary,
		Structure: StructureUnknown,
		Source:    "fallback",
	}
}

// Result bundles both analyses for persistence and downstream planning.
type Result struct {
	Content ContentAnalysis  `json:"content"`
	Style   StyleFingerprint `json:"style"`
}
