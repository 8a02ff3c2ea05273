package media

import (
	"encoding/json"
	"fmt"
	"os"
)

// Timeline is the normalized segment view of the source, shared between the
// analysis and planning stages through the working directory.
type Timeline struct {
	DurationSeconds  float64   `json:"duration_seconds"`
	TranscriptSource string    `json:"transcript_source,omitempty"`
	Segments         []Segment `json:"segments"`
}

// SceneSegments returns only the scene segments, in timeline order.
func (t Timeline) SceneSegments() []Segment {
	var scenes []Segment
	for _, seg := range t.Segments {
		if seg.Kind == SegmentScene {
			scenes = append(scenes, seg)
		}
	}
	return scenes
}

// SaveTimeline persists the timeline as JSON.
func SaveTimeline(timeline Timeline, path string) error {
	data, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return fmt.Errorf("media: encode timeline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("media: write timeline: %w", err)
	}
	return nil
}

// LoadTimeline reads a persisted timeline.
func LoadTimeline(path string) (Timeline, error) {
	var timeline Timeline
	data, err := os.ReadFile(path)
	if err != nil {
		return timeline, fmt.Errorf("media: read timeline: %w", err)
	}
	if err := json.Unmarshal(data, &timeline); err != nil {
		return timeline, fmt.Errorf("media: parse timeline: %w", err)
	}
	return timeline, nil
}
