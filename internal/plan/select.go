package plan

import (
	"sort"

	"remake/internal/media"
	"remake/internal/recipe"
)

// maxSpeedFactor caps how far a segment may be sped up to squeeze into the
// remaining time budget before it is dropped instead.
const maxSpeedFactor = 2.0

// selectOperations packs scene segments into the target duration. Candidates
// are considered by descending importance score with segment id breaking
// ties, so the same timeline always yields the same recipe. A candidate that
// overflows the remaining budget is cut outright under an aggressive-cut
// strategy; under every other strategy it is sped up to fit when the required
// factor stays under maxSpeedFactor, and cut beyond that. The returned
// operations are ordered by source start time.
func selectOperations(segments []media.Segment, targetSeconds float64, strategy string) []recipe.SegmentOperation {
	scenes := make([]media.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind == media.SegmentScene {
			scenes = append(scenes, seg)
		}
	}

	ranked := make([]media.Segment, len(scenes))
	copy(ranked, scenes)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	kept := map[string]recipe.SegmentOperation{}
	remaining := targetSeconds
	for _, seg := range ranked {
		if remaining <= 0 {
			break
		}
		length := seg.Duration()
		if length <= remaining {
			kept[seg.ID] = recipe.SegmentOperation{
				SegmentID: seg.ID,
				Kind:      recipe.OpKeep,
				Start:     seg.Start,
				End:       seg.End,
			}
			remaining -= length
			continue
		}
		if strategy == StrategyAggressiveCut {
			continue
		}
		speed := length / remaining
		if speed <= maxSpeedFactor {
			kept[seg.ID] = recipe.SegmentOperation{
				SegmentID: seg.ID,
				Kind:      recipe.OpModify,
				Start:     seg.Start,
				End:       seg.End,
				Speed:     speed,
			}
			remaining = 0
		}
	}

	ops := make([]recipe.SegmentOperation, 0, len(scenes))
	for _, seg := range scenes {
		if op, ok := kept[seg.ID]; ok {
			ops = append(ops, op)
			continue
		}
		ops = append(ops, recipe.SegmentOperation{
			SegmentID: seg.ID,
			Kind:      recipe.OpCut,
			Start:     seg.Start,
			End:       seg.End,
		})
	}
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Start != ops[j].Start {
			return ops[i].Start < ops[j].Start
		}
		return ops[i].SegmentID < ops[j].SegmentID
	})
	return ops
}

// buildTimeline lays kept operations onto the video track in output time and
// places narration lines on the audio track.
func buildTimeline(r *recipe.Recipe) []recipe.TimelineOperation {
	var timeline []recipe.TimelineOperation
	var cursor float64
	for _, op := range r.KeptOperations() {
		length := op.End - op.Start
		if op.Speed > 0 && op.Speed != 1 {
			length /= op.Speed
		}
		timeline = append(timeline, recipe.TimelineOperation{
			Track:    recipe.TrackVideo,
			At:       cursor,
			Duration: length,
			Ref:      op.SegmentID,
		})
		cursor += length
	}
	if r.Narration != nil {
		for i, line := range r.Narration.Lines {
			duration := 3.0
			if i+1 < len(r.Narration.Lines) {
				duration = r.Narration.Lines[i+1].At - line.At
			}
			if duration <= 0 {
				duration = 3.0
			}
			timeline = append(timeline, recipe.TimelineOperation{
				Track:    recipe.TrackAudio,
				At:       line.At,
				Duration: duration,
				Ref:      narrationRef(i),
			})
		}
	}
	for _, prompt := range r.Generation {
		if prompt.Kind != recipe.AssetImage {
			continue
		}
		timeline = append(timeline, recipe.TimelineOperation{
			Track: recipe.TrackImage,
			At:    prompt.At,
			Ref:   prompt.ID,
		})
	}
	return timeline
}
