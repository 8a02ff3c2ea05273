package toolchain

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	showinfoTimePattern = regexp.MustCompile(`pts_time:(\d+(?:\.\d+)?)`)
	silenceStartPattern = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?)`)
	silenceEndPattern   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?)`)
	blackPattern        = regexp.MustCompile(`black_start:(\d+(?:\.\d+)?)\s+black_end:(\d+(?:\.\d+)?)`)
	meanVolumePattern   = regexp.MustCompile(`mean_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)
	maxVolumePattern    = regexp.MustCompile(`max_volume:\s*(-?\d+(?:\.\d+)?)\s*dB`)
)

func parseShowinfoTimestamps(output string) []float64 {
	var times []float64
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		if match := showinfoTimePattern.FindStringSubmatch(line); match != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				times = append(times, value)
			}
		}
	}
	return times
}

// parseSilenceIntervals pairs silence_start/silence_end lines in order. A
// trailing start without an end (silence running into EOF) is dropped; the
// QA checks care about bounded intervals only.
func parseSilenceIntervals(output string) []Interval {
	var intervals []Interval
	var pendingStart *float64
	for _, line := range strings.Split(output, "\n") {
		if match := silenceStartPattern.FindStringSubmatch(line); match != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				start := value
				if start < 0 {
					start = 0
				}
				pendingStart = &start
			}
			continue
		}
		if match := silenceEndPattern.FindStringSubmatch(line); match != nil && pendingStart != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil && value > *pendingStart {
				intervals = append(intervals, Interval{Start: *pendingStart, End: value})
			}
			pendingStart = nil
		}
	}
	return intervals
}

func parseBlackIntervals(output string) []Interval {
	var intervals []Interval
	for _, match := range blackPattern.FindAllStringSubmatch(output, -1) {
		start, startErr := strconv.ParseFloat(match[1], 64)
		end, endErr := strconv.ParseFloat(match[2], 64)
		if startErr == nil && endErr == nil && end > start {
			intervals = append(intervals, Interval{Start: start, End: end})
		}
	}
	return intervals
}

func parseVolumeStats(output string) AudioStats {
	stats := AudioStats{PeakDB: -91, MeanDB: -91}
	if match := meanVolumePattern.FindStringSubmatch(output); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			stats.MeanDB = value
		}
	}
	if match := maxVolumePattern.FindStringSubmatch(output); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			stats.PeakDB = value
		}
	}
	return stats
}
