package recipe

import (
	"fmt"
	"strings"
	"time"
)

// Version identifies the recipe schema emitted by this build.
const Version = "1"

// OperationKind describes what happens to one source segment.
type OperationKind string

const (
	OpKeep    OperationKind = "keep"
	OpCut     OperationKind = "cut"
	OpModify  OperationKind = "modify"
	OpReplace OperationKind = "replace"
)

// SegmentOperation is one entry of the ordered edit list. Start/End are
// source-time bounds; Speed is a playback factor (0 or 1 means unchanged).
type SegmentOperation struct {
	SegmentID  string        `json:"segment_id" yaml:"segment_id"`
	Kind       OperationKind `json:"kind" yaml:"kind"`
	Start      float64       `json:"start" yaml:"start"`
	End        float64       `json:"end" yaml:"end"`
	Speed      float64       `json:"speed,omitempty" yaml:"speed,omitempty"`
	Transition string        `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// NarrationLine is one timed line of replacement narration.
type NarrationLine struct {
	At   float64 `json:"at" yaml:"at"`
	Text string  `json:"text" yaml:"text"`
}

// NarrationScript is the optional revised narration drafted by the planner.
type NarrationScript struct {
	Language string          `json:"language,omitempty" yaml:"language,omitempty"`
	Lines    []NarrationLine `json:"lines" yaml:"lines"`
}

// TrackKind identifies a timeline track.
type TrackKind string

const (
	TrackVideo  TrackKind = "video"
	TrackAudio  TrackKind = "audio"
	TrackText   TrackKind = "text"
	TrackImage  TrackKind = "image"
	TrackEffect TrackKind = "effect"
)

// TimelineOperation places one element on the multi-track output timeline.
// At/Duration are output-time seconds; Ref names the placed element (a
// segment id, narration line index, or generation prompt id).
type TimelineOperation struct {
	Track    TrackKind `json:"track" yaml:"track"`
	At       float64   `json:"at" yaml:"at"`
	Duration float64   `json:"duration" yaml:"duration"`
	Ref      string    `json:"ref" yaml:"ref"`
}

// AssetKind classifies a generation prompt.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
)

// GenerationPrompt requests one supplementary generated asset.
type GenerationPrompt struct {
	ID     string    `json:"id" yaml:"id"`
	Kind   AssetKind `json:"kind" yaml:"kind"`
	Prompt string    `json:"prompt" yaml:"prompt"`
	At     float64   `json:"at,omitempty" yaml:"at,omitempty"`
}

// Recipe is the complete declarative edit description.
type Recipe struct {
	Version          string              `json:"version" yaml:"version"`
	SourceID         string              `json:"source_id" yaml:"source_id"`
	CreatedAt        time.Time           `json:"created_at" yaml:"created_at"`
	OriginalDuration float64             `json:"original_duration_seconds" yaml:"original_duration_seconds"`
	TargetDuration   float64             `json:"target_duration_seconds" yaml:"target_duration_seconds"`
	Strategy         string              `json:"strategy" yaml:"strategy"`
	Operations       []SegmentOperation  `json:"operations" yaml:"operations"`
	Narration        *NarrationScript    `json:"narration,omitempty" yaml:"narration,omitempty"`
	Timeline         []TimelineOperation `json:"timeline" yaml:"timeline"`
	Generation       []GenerationPrompt  `json:"generation,omitempty" yaml:"generation,omitempty"`
	Tools            []string            `json:"tools,omitempty" yaml:"tools,omitempty"`
	Notes            []string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	RightsVerified   bool                `json:"rights_verified" yaml:"rights_verified"`
}

// KeptOperations returns the operations Execute must render, in order.
func (r *Recipe) KeptOperations() []SegmentOperation {
	kept := make([]SegmentOperation, 0, len(r.Operations))
	for _, op := range r.Operations {
		if op.Kind == OpKeep || op.Kind == OpModify {
			kept = append(kept, op)
		}
	}
	return kept
}

// PlannedOutputDuration sums the output-time length of kept operations.
func (r *Recipe) PlannedOutputDuration() float64 {
	var total float64
	for _, op := range r.KeptOperations() {
		length := op.End - op.Start
		if op.Speed > 0 && op.Speed != 1 {
			length /= op.Speed
		}
		total += length
	}
	return total
}

// Validate checks structural invariants before the recipe is persisted.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.SourceID) == "" {
		return fmt.Errorf("recipe: missing source id")
	}
	if r.TargetDuration <= 0 {
		return fmt.Errorf("recipe: non-positive target duration %.2f", r.TargetDuration)
	}
	for i, op := range r.Operations {
		if op.SegmentID == "" {
			return fmt.Errorf("recipe: operation %d missing segment id", i)
		}
		switch op.Kind {
		case OpKeep, OpCut, OpModify, OpReplace:
		default:
			return fmt.Errorf("recipe: operation %d has unknown kind %q", i, op.Kind)
		}
		if op.Kind != OpCut && op.End <= op.Start {
			return fmt.Errorf("recipe: operation %d has empty bounds [%.3f,%.3f]", i, op.Start, op.End)
		}
	}
	return nil
}
