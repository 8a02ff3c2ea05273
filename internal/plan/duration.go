package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDurationSpec resolves a target-duration request against the source
// duration. Accepted forms: "45s", "2m", "1h", "original", and empty (which
// keeps the original duration).
func ParseDurationSpec(spec string, originalSeconds float64) (float64, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" || spec == "original" {
		return originalSeconds, nil
	}

	unit := spec[len(spec)-1]
	value, err := strconv.ParseFloat(spec[:len(spec)-1], 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid duration spec %q", spec)
	}
	switch unit {
	case 's':
		return value, nil
	case 'm':
		return value * 60, nil
	case 'h':
		return value * 3600, nil
	default:
		return 0, fmt.Errorf("invalid duration spec %q: unit must be s, m, or h", spec)
	}
}

// Strategies derived from the compression ratio target/original.
const (
	StrategyAggressiveCut = "aggressive_cut"
	StrategyModerateCut   = "moderate_cut"
	StrategyExtend        = "extend"
	StrategyRestructure   = "restructure"
)

// ClassifyStrategy maps the target/original ratio onto an edit strategy.
func ClassifyStrategy(targetSeconds, originalSeconds float64) string {
	if originalSeconds <= 0 {
		return StrategyRestructure
	}
	ratio := targetSeconds / originalSeconds
	switch {
	case ratio < 0.5:
		return StrategyAggressiveCut
	case ratio < 0.8:
		return StrategyModerateCut
	case ratio > 1.2:
		return StrategyExtend
	default:
		return StrategyRestructure
	}
}
