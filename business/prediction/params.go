package prediction

import (
	"strconv"
	"strings"
	"time"

	"adserver/domain"
)

// ParseBaseConfig reads the cfg:exp:base hash. Missing or unparsable numbers
// are zero and an unparsable start_time falls back to now.
func ParseBaseConfig(h map[string]string, now time.Time) domain.ExperimentBaseConfig {
	cfg := domain.ExperimentBaseConfig{
		Version:     h["version"],
		BaseValue:   parseFloat(h["base"]),
		ScoreFactor: parseFloat(h["score_factor"]),
		StartTime:   now,
	}
	if raw := strings.TrimSpace(h["start_time"]); raw != "" {
		if t, err := time.Parse(domain.StartTimeLayout, raw); err == nil {
			cfg.StartTime = t
		}
	}
	return cfg
}

func ParseABParams(h map[string]string) domain.ABParams {
	return domain.ABParams{
		FillA:  parseFloat(h["fill_a"]),
		FillB:  parseFloat(h["fill_b"]),
		ShowA:  parseFloat(h["show_a"]),
		ShowB:  parseFloat(h["show_b"]),
		ClickA: parseFloat(h["click_a"]),
		ClickB: parseFloat(h["click_b"]),
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
