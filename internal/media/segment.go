package media

import (
	"fmt"
	"sort"
)

// SegmentKind classifies a bounded time range of the source video.
type SegmentKind string

const (
	SegmentScene   SegmentKind = "scene"
	SegmentChapter SegmentKind = "chapter"
	SegmentSilence SegmentKind = "silence"
	SegmentSpeech  SegmentKind = "speech"
)

// Segment is a bounded time range of the source, optionally carrying a
// transcript slice, an extracted keyframe, and an importance score. Segments
// are produced by Normalize, re-scored by Understand, and consumed by Plan.
type Segment struct {
	ID           string      `json:"id"`
	Start        float64     `json:"start"`
	End          float64     `json:"end"`
	Kind         SegmentKind `json:"kind"`
	Transcript   string      `json:"transcript,omitempty"`
	KeyframePath string      `json:"keyframe_path,omitempty"`
	Score        float64     `json:"score,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate enforces the segment bounds invariant against the source duration:
// 0 <= start < end <= duration.
func (s Segment) Validate(sourceDuration float64) error {
	if s.Start < 0 {
		return fmt.Errorf("segment %s: negative start %.3f", s.ID, s.Start)
	}
	if s.Start >= s.End {
		return fmt.Errorf("segment %s: start %.3f not before end %.3f", s.ID, s.Start, s.End)
	}
	if sourceDuration > 0 && s.End > sourceDuration+0.001 {
		return fmt.Errorf("segment %s: end %.3f exceeds source duration %.3f", s.ID, s.End, sourceDuration)
	}
	return nil
}

// SortSegments orders segments by start time, breaking ties by id so the
// timeline is deterministic.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].Start != segments[j].Start {
			return segments[i].Start < segments[j].Start
		}
		return segments[i].ID < segments[j].ID
	})
}
