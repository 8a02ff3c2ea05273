package analysis

import (
	"remake/internal/media"
)

// Tempo bands for cut density.
const (
	TempoSlow   = "slow"
	TempoMedium = "medium"
	TempoFast   = "fast"
)

const (
	slowCutsPerMinute = 2.0
	fastCutsPerMinute = 8.0
)

// StyleFingerprint is a compact numeric/categorical summary of the source's
// editing tempo and audio composition, computed purely from segment
// statistics.
type StyleFingerprint struct {
	CutsPerMinute      float64 `json:"cuts_per_minute"`
	Tempo              string  `json:"tempo"`
	VoiceRatio         float64 `json:"voice_ratio"`
	MusicRatio         float64 `json:"music_ratio"`
	EffectsRatio       float64 `json:"effects_ratio"`
	SupplementaryRatio float64 `json:"supplementary_ratio"`
}

// Fingerprint derives the style fingerprint from the segment timeline.
// Voice/music/effects ratios are estimated from the speech-segment time
// share; the supplementary-footage ratio is its complement.
func Fingerprint(segments []media.Segment, durationSeconds float64) StyleFingerprint {
	fp := StyleFingerprint{Tempo: TempoSlow}
	if durationSeconds <= 0 {
		return fp
	}

	var sceneCount int
	var speechSeconds float64
	for _, seg := range segments {
		switch seg.Kind {
		case media.SegmentScene:
			sceneCount++
		case media.SegmentSpeech:
			speechSeconds += seg.Duration()
		}
	}

	fp.CutsPerMinute = float64(sceneCount) / (durationSeconds / 60)
	switch {
	case fp.CutsPerMinute > fastCutsPerMinute:
		fp.Tempo = TempoFast
	case fp.CutsPerMinute >= slowCutsPerMinute:
		fp.Tempo = TempoMedium
	default:
		fp.Tempo = TempoSlow
	}

	speechRatio := speechSeconds / durationSeconds
	if speechRatio > 1 {
		speechRatio = 1
	}
	fp.VoiceRatio = speechRatio
	fp.MusicRatio = (1 - speechRatio) * 0.7
	fp.EffectsRatio = (1 - speechRatio) * 0.3
	fp.SupplementaryRatio = 1 - speechRatio
	return fp
}
