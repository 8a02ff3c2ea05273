package analysis

import (
	"math"
	"testing"

	"remake/internal/media"
)

func TestFingerprintTempoBands(t *testing.T) {
	// 10 minutes of footage.
	const duration = 600.0

	makeScenes := func(n int) []media.Segment {
		segments := make([]media.Segment, n)
		for i := range segments {
			segments[i] = media.Segment{ID: "s", Kind: media.SegmentScene, Start: float64(i), End: float64(i) + 1}
		}
		return segments
	}

	if fp := Fingerprint(makeScenes(5), duration); fp.Tempo != TempoSlow {
		t.Fatalf("expected slow tempo, got %s (%f cuts/min)", fp.Tempo, fp.CutsPerMinute)
	}
	if fp := Fingerprint(makeScenes(40), duration); fp.Tempo != TempoMedium {
		t.Fatalf("expected medium tempo, got %s (%f cuts/min)", fp.Tempo, fp.CutsPerMinute)
	}
	if fp := Fingerprint(makeScenes(120), duration); fp.Tempo != TempoFast {
		t.Fatalf("expected fast tempo, got %s (%f cuts/min)", fp.Tempo, fp.CutsPerMinute)
	}
}

func TestFingerprintAudioRatiosFromSpeechShare(t *testing.T) {
	segments := []media.Segment{
		{ID: "sp1", Kind: media.SegmentSpeech, Start: 0, End: 30},
		{ID: "sp2", Kind: media.SegmentSpeech, Start: 40, End: 70},
		{ID: "sc1", Kind: media.SegmentScene, Start: 0, End: 10},
	}
	fp := Fingerprint(segments, 100)

	if math.Abs(fp.VoiceRatio-0.6) > 1e-9 {
		t.Fatalf("expected voice ratio 0.6, got %f", fp.VoiceRatio)
	}
	if math.Abs(fp.SupplementaryRatio-0.4) > 1e-9 {
		t.Fatalf("expected supplementary ratio 0.4, got %f", fp.SupplementaryRatio)
	}
	if math.Abs(fp.MusicRatio-0.28) > 1e-9 {
		t.Fatalf("expected music ratio 0.28, got %f", fp.MusicRatio)
	}
	if math.Abs(fp.EffectsRatio-0.12) > 1e-9 {
		t.Fatalf("expected effects ratio 0.12, got %f", fp.EffectsRatio)
	}
}

func TestFingerprintZeroDuration(t *testing.T) {
	fp := Fingerprint(nil, 0)
	if fp.Tempo != TempoSlow || fp.CutsPerMinute != 0 {
		t.Fatalf("unexpected fingerprint for zero duration: %+v", fp)
	}
}

func TestNormalizeStructure(t *testing.T) {
	tests := map[string]string{
		"Educational": StructureEducational,
		"NEWS":        StructureNews,
		"":            StructureUnknown,
		"podcast":     StructureOther,
	}
	for input, want := range tests {
		if got := NormalizeStructure(input); got != want {
			t.Fatalf("NormalizeStructure(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFallbackAnalysisTruncates(t *testing.T) {
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'a'
	}
	result := FallbackAnalysis(string(long))
	if result.Structure != StructureUnknown {
		t.Fatalf("expected unknown structure, got %q", result.Structure)
	}
	if len([]rune(result.Summary)) != 503 {
		t.Fatalf("expected truncated summary with ellipsis, got %d runes", len([]rune(result.Summary)))
	}
	if result.Source != "fallback" {
		t.Fatalf("expected fallback source, got %q", result.Source)
	}
}
