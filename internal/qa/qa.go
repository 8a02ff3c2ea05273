package qa

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"remake/internal/media/toolchain"
)

// Thresholds fixed by the verification contract.
const (
	peakClippingDB     = 0.0
	minMeanVolumeDB    = -30.0
	maxBlackSegments   = 2
	minBlackSeconds    = 2.0
	maxSilenceSegments = 3
	minSilenceSeconds  = 5.0
	minWidth           = 720
	minHeight          = 480
)

// Check is one objective pass/fail test with its observed and expected
// values rendered for humans.
type Check struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Observed string `json:"observed"`
	Expected string `json:"expected"`
	Message  string `json:"message"`
}

// Result is the full verification verdict.
type Result struct {
	Checks      []Check   `json:"checks"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	Issues      []string  `json:"issues,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Observation carries everything the battery inspects, gathered by the
// verify stage from the rendered artifact.
type Observation struct {
	DurationSeconds  float64
	TargetSeconds    float64
	Audio            toolchain.AudioStats
	BlackIntervals   []toolchain.Interval
	SilenceIntervals []toolchain.Interval
	Width            int
	Height           int
	Transcript       string
	ForbiddenTerms   []string
}

// Policy holds the configurable portion of the verdict.
type Policy struct {
	MinScore             int
	DurationTolerancePct float64
}

// Evaluate runs the fixed battery in order and produces the aggregate
// verdict. The forbidden-terms check only participates when a list was
// supplied.
func Evaluate(obs Observation, policy Policy) *Result {
	if policy.MinScore <= 0 {
		policy.MinScore = 70
	}
	if policy.DurationTolerancePct <= 0 {
		policy.DurationTolerancePct = 10
	}

	checks := []Check{
		durationCheck(obs, policy.DurationTolerancePct),
		audioPeakCheck(obs.Audio),
		audioLevelCheck(obs.Audio),
		blackFrameCheck(obs.BlackIntervals),
		silenceCheck(obs.SilenceIntervals),
		resolutionCheck(obs.Width, obs.Height),
	}
	if len(obs.ForbiddenTerms) > 0 {
		checks = append(checks, forbiddenTermsCheck(obs.Transcript, obs.ForbiddenTerms))
	}

	passed := 0
	for _, check := range checks {
		if check.Passed {
			passed++
		}
	}
	score := int(math.Round(100 * float64(passed) / float64(len(checks))))

	result := &Result{
		Checks:    checks,
		Score:     score,
		Passed:    score >= policy.MinScore,
		CheckedAt: time.Now().UTC(),
	}
	for _, check := range checks {
		if check.Passed {
			continue
		}
		result.Issues = append(result.Issues, fmt.Sprintf("%s: %s", check.Name, check.Message))
		result.Suggestions = append(result.Suggestions, suggestionFor(check.Name))
	}
	return result
}

func durationCheck(obs Observation, tolerancePct float64) Check {
	tolerance := obs.TargetSeconds * tolerancePct / 100
	delta := math.Abs(obs.DurationSeconds - obs.TargetSeconds)
	check := Check{
		Name:     "duration",
		Observed: fmt.Sprintf("%.1fs", obs.DurationSeconds),
		Expected: fmt.Sprintf("%.1fs ± %.1fs", obs.TargetSeconds, tolerance),
		Passed:   delta <= tolerance,
	}
	if check.Passed {
		check.Message = "duration within tolerance"
	} else {
		check.Message = fmt.Sprintf("duration off target by %.1fs", delta)
	}
	return check
}

func audioPeakCheck(audio toolchain.AudioStats) Check {
	check := Check{
		Name:     "audio_peak",
		Expected: fmt.Sprintf("peak <= %.1f dB", peakClippingDB),
	}
	if !audio.HasAudio {
		check.Passed = true
		check.Observed = "no audio track"
		check.Message = "no audio track present"
		return check
	}
	check.Observed = fmt.Sprintf("%.1f dB", audio.PeakDB)
	check.Passed = audio.PeakDB <= peakClippingDB
	if check.Passed {
		check.Message = "audio is not clipping"
	} else {
		check.Message = "audio peak exceeds 0 dB (clipping)"
	}
	return check
}

func audioLevelCheck(audio toolchain.AudioStats) Check {
	check := Check{
		Name:     "audio_level",
		Expected: fmt.Sprintf("mean > %.1f dB", minMeanVolumeDB),
	}
	if !audio.HasAudio {
		check.Passed = true
		check.Observed = "no audio track"
		check.Message = "no audio track present"
		return check
	}
	check.Observed = fmt.Sprintf("%.1f dB", audio.MeanDB)
	check.Passed = audio.MeanDB > minMeanVolumeDB
	if check.Passed {
		check.Message = "audio level is audible"
	} else {
		check.Message = "mean audio level is too quiet"
	}
	return check
}

func blackFrameCheck(intervals []toolchain.Interval) Check {
	count := countAtLeast(intervals, minBlackSeconds)
	check := Check{
		Name:     "black_frames",
		Observed: fmt.Sprintf("%d segments >= %.0fs", count, minBlackSeconds),
		Expected: fmt.Sprintf("at most %d", maxBlackSegments),
		Passed:   count <= maxBlackSegments,
	}
	if check.Passed {
		check.Message = "black-frame segments within limit"
	} else {
		check.Message = fmt.Sprintf("%d long black-frame segments found", count)
	}
	return check
}

func silenceCheck(intervals []toolchain.Interval) Check {
	count := countAtLeast(intervals, minSilenceSeconds)
	check := Check{
		Name:     "silence",
		Observed: fmt.Sprintf("%d segments >= %.0fs", count, minSilenceSeconds),
		Expected: fmt.Sprintf("at most %d", maxSilenceSegments),
		Passed:   count <= maxSilenceSegments,
	}
	if check.Passed {
		check.Message = "silence segments within limit"
	} else {
		check.Message = fmt.Sprintf("%d long silence segments found", count)
	}
	return check
}

func resolutionCheck(width, height int) Check {
	check := Check{
		Name:     "resolution",
		Observed: fmt.Sprintf("%dx%d", width, height),
		Expected: fmt.Sprintf("at least %dx%d", minWidth, minHeight),
		Passed:   width >= minWidth && height >= minHeight,
	}
	if check.Passed {
		check.Message = "resolution meets the floor"
	} else {
		check.Message = "resolution below minimum floor"
	}
	return check
}

func forbiddenTermsCheck(transcript string, terms []string) Check {
	lowered := strings.ToLower(transcript)
	var found []string
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lowered, term) {
			found = append(found, term)
		}
	}
	check := Check{
		Name:     "forbidden_terms",
		Observed: fmt.Sprintf("%d matches", len(found)),
		Expected: "0 matches",
		Passed:   len(found) == 0,
	}
	if check.Passed {
		check.Message = "no forbidden terms in transcript"
	} else {
		check.Message = fmt.Sprintf("forbidden terms present: %s", strings.Join(found, ", "))
	}
	return check
}

func countAtLeast(intervals []toolchain.Interval, minSeconds float64) int {
	count := 0
	for _, interval := range intervals {
		if interval.Duration() >= minSeconds {
			count++
		}
	}
	return count
}

func suggestionFor(name string) string {
	switch name {
	case "duration":
		return "adjust the segment packing budget or allow a wider speed range, then re-run the plan stage"
	case "audio_peak":
		return "re-run loudness normalization with a lower true-peak target"
	case "audio_level":
		return "raise the loudness normalization integrated target or check the source audio track"
	case "black_frames":
		return "trim black leader/trailer frames from cut boundaries"
	case "silence":
		return "drop or tighten segments that contain long pauses"
	case "resolution":
		return "select a higher-resolution source format during download"
	case "forbidden_terms":
		return "revise the narration script or cut segments containing the flagged terms"
	default:
		return "inspect the failing check and re-run the pipeline"
	}
}

// Save persists the result as JSON.
func Save(result *Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("qa: encode result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("qa: write %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted result.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qa: read %s: %w", path, err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("qa: parse %s: %w", path, err)
	}
	return &result, nil
}
