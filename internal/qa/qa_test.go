package qa

import (
	"path/filepath"
	"strings"
	"testing"

	"remake/internal/media/toolchain"
)

func cleanObservation() Observation {
	return Observation{
		DurationSeconds: 60,
		TargetSeconds:   60,
		Audio:           toolchain.AudioStats{HasAudio: true, PeakDB: -1.2, MeanDB: -18.5},
		Width:           1920,
		Height:          1080,
	}
}

func TestEvaluateAllChecksPass(t *testing.T) {
	result := Evaluate(cleanObservation(), Policy{})
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result.Score != 100 {
		t.Fatalf("expected score 100, got %d", result.Score)
	}
	if len(result.Checks) != 6 {
		t.Fatalf("expected 6 checks without forbidden terms, got %d", len(result.Checks))
	}
	if len(result.Issues) != 0 || len(result.Suggestions) != 0 {
		t.Fatalf("expected no issues on a clean artifact: %+v", result)
	}
}

func TestEvaluateDurationTolerance(t *testing.T) {
	obs := cleanObservation()
	obs.DurationSeconds = 54
	result := Evaluate(obs, Policy{})
	if !checkByName(t, result, "duration").Passed {
		t.Fatalf("54s against a 60s target should be inside the 10%% band")
	}

	obs.DurationSeconds = 40
	result = Evaluate(obs, Policy{})
	check := checkByName(t, result, "duration")
	if check.Passed {
		t.Fatalf("40s against a 60s target should fail")
	}
	if !strings.Contains(check.Message, "20.0s") {
		t.Fatalf("failure message should name the delta, got %q", check.Message)
	}
}

func TestEvaluateNoAudioPassesAudioChecks(t *testing.T) {
	obs := cleanObservation()
	obs.Audio = toolchain.AudioStats{HasAudio: false}
	result := Evaluate(obs, Policy{})
	if !checkByName(t, result, "audio_peak").Passed {
		t.Fatalf("missing audio track must not fail the clipping check")
	}
	if !checkByName(t, result, "audio_level").Passed {
		t.Fatalf("missing audio track must not fail the level check")
	}
}

func TestEvaluateAudioThresholds(t *testing.T) {
	obs := cleanObservation()
	obs.Audio = toolchain.AudioStats{HasAudio: true, PeakDB: 0.3, MeanDB: -35}
	result := Evaluate(obs, Policy{})
	if checkByName(t, result, "audio_peak").Passed {
		t.Fatalf("peak above 0 dB must fail")
	}
	if checkByName(t, result, "audio_level").Passed {
		t.Fatalf("mean below -30 dB must fail")
	}
}

func TestEvaluateIntervalCounts(t *testing.T) {
	obs := cleanObservation()
	// Two long black segments are allowed, the short one is ignored.
	obs.BlackIntervals = []toolchain.Interval{
		{Start: 0, End: 3},
		{Start: 10, End: 12.5},
		{Start: 20, End: 21},
	}
	// Three long silences are allowed.
	obs.SilenceIntervals = []toolchain.Interval{
		{Start: 0, End: 6},
		{Start: 10, End: 16},
		{Start: 20, End: 26},
	}
	result := Evaluate(obs, Policy{})
	if !checkByName(t, result, "black_frames").Passed {
		t.Fatalf("two long black segments should pass")
	}
	if !checkByName(t, result, "silence").Passed {
		t.Fatalf("three long silences should pass")
	}

	obs.BlackIntervals = append(obs.BlackIntervals, toolchain.Interval{Start: 30, End: 33})
	obs.SilenceIntervals = append(obs.SilenceIntervals, toolchain.Interval{Start: 30, End: 36})
	result = Evaluate(obs, Policy{})
	if checkByName(t, result, "black_frames").Passed {
		t.Fatalf("three long black segments should fail")
	}
	if checkByName(t, result, "silence").Passed {
		t.Fatalf("four long silences should fail")
	}
}

func TestEvaluateForbiddenTerms(t *testing.T) {
	obs := cleanObservation()
	obs.Transcript = "Welcome back, today we review the Acme launch."
	obs.ForbiddenTerms = []string{"acme", "widgets"}
	result := Evaluate(obs, Policy{})
	if len(result.Checks) != 7 {
		t.Fatalf("forbidden-terms check should join the battery, got %d checks", len(result.Checks))
	}
	check := checkByName(t, result, "forbidden_terms")
	if check.Passed {
		t.Fatalf("transcript containing a forbidden term must fail")
	}
	if !strings.Contains(check.Message, "acme") {
		t.Fatalf("message should name the matched term, got %q", check.Message)
	}
}

func TestEvaluateScoreRoundingAndThreshold(t *testing.T) {
	obs := cleanObservation()
	obs.DurationSeconds = 40
	obs.Audio = toolchain.AudioStats{HasAudio: true, PeakDB: 1.0, MeanDB: -18}
	result := Evaluate(obs, Policy{MinScore: 70})

	// 4 of 6 checks pass.
	if result.Score != 67 {
		t.Fatalf("expected score 67, got %d", result.Score)
	}
	if result.Passed {
		t.Fatalf("score 67 must not pass a 70 threshold")
	}
	if len(result.Issues) != 2 || len(result.Suggestions) != 2 {
		t.Fatalf("expected one issue and suggestion per failing check: %+v", result)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	obs := cleanObservation()
	obs.Width = 640
	obs.Height = 360
	result := Evaluate(obs, Policy{})

	path := filepath.Join(t.TempDir(), "qa-result.json")
	if err := Save(result, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Score != result.Score || loaded.Passed != result.Passed {
		t.Fatalf("round trip changed verdict: %+v vs %+v", loaded, result)
	}
	if checkByName(t, loaded, "resolution").Passed {
		t.Fatalf("640x360 must fail the resolution floor")
	}
}

func checkByName(t *testing.T, result *Result, name string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not found in %+v", name, result.Checks)
	return Check{}
}
