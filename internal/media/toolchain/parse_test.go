package toolchain

import (
	"testing"
)

func TestParseSilenceIntervalsPairsStartAndEnd(t *testing.T) {
	output := `
[silencedetect @ 0x1] silence_start: 12.5
[silencedetect @ 0x1] silence_end: 19.25 | silence_duration: 6.75
[silencedetect @ 0x1] silence_start: 40
`
	intervals := parseSilenceIntervals(output)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 bounded interval, got %d", len(intervals))
	}
	if intervals[0].Start != 12.5 || intervals[0].End != 19.25 {
		t.Fatalf("unexpected interval: %+v", intervals[0])
	}
	if got := intervals[0].Duration(); got != 6.75 {
		t.Fatalf("unexpected duration: %f", got)
	}
}

func TestParseSilenceIntervalsClampsNegativeStart(t *testing.T) {
	output := `
[silencedetect @ 0x1] silence_start: -0.02
[silencedetect @ 0x1] silence_end: 3 | silence_duration: 3.02
`
	intervals := parseSilenceIntervals(output)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Start != 0 {
		t.Fatalf("expected clamped start, got %f", intervals[0].Start)
	}
}

func TestParseBlackIntervals(t *testing.T) {
	output := `[blackdetect @ 0x1] black_start:0 black_end:2.4 black_duration:2.4
[blackdetect @ 0x1] black_start:30.1 black_end:33 black_duration:2.9`
	intervals := parseBlackIntervals(output)
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(intervals))
	}
	if intervals[1].Start != 30.1 || intervals[1].End != 33 {
		t.Fatalf("unexpected second interval: %+v", intervals[1])
	}
}

func TestParseVolumeStats(t *testing.T) {
	output := `
[Parsed_volumedetect_0 @ 0x1] mean_volume: -21.3 dB
[Parsed_volumedetect_0 @ 0x1] max_volume: -1.8 dB
`
	stats := parseVolumeStats(output)
	if stats.MeanDB != -21.3 {
		t.Fatalf("unexpected mean: %f", stats.MeanDB)
	}
	if stats.PeakDB != -1.8 {
		t.Fatalf("unexpected peak: %f", stats.PeakDB)
	}
}

func TestParseShowinfoTimestamps(t *testing.T) {
	output := `
[Parsed_showinfo_1 @ 0x1] n:   0 pts:  12800 pts_time:0.426667 duration:512
[Parsed_showinfo_1 @ 0x1] n:   1 pts: 640000 pts_time:21.3333 duration:512
`
	times := parseShowinfoTimestamps(output)
	if len(times) != 2 {
		t.Fatalf("expected 2 timestamps, got %d", len(times))
	}
	if times[1] != 21.3333 {
		t.Fatalf("unexpected timestamp: %f", times[1])
	}
}
