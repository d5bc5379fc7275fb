package domain

import "time"

// StartTimeLayout is the persisted format of the cfg:exp:base start_time field.
const StartTimeLayout = "2006-01-02 15:04:05-0700"

// ExperimentBaseConfig is parsed from the cfg:exp:base hash.
type ExperimentBaseConfig struct {
	Version     string    `json:"version"`
	BaseValue   float64   `json:"base"`
	ScoreFactor float64   `json:"score_factor"`
	StartTime   time.Time `json:"start_time"`
}

// ABParams are the additive smoothing constants from the cfg:exp:ab hash.
type ABParams struct {
	FillA  float64 `json:"fill_a"`
	FillB  float64 `json:"fill_b"`
	ShowA  float64 `json:"show_a"`
	ShowB  float64 `json:"show_b"`
	ClickA float64 `json:"click_a"`
	ClickB float64 `json:"click_b"`
}

// AdExperimentConfig is the per (version, ad) A/B assignment persisted as JSON.
type AdExperimentConfig struct {
	AdID                  int64   `json:"ad_id"`
	Version               string  `json:"version"`
	ControlGroupID        string  `json:"cg_user"`
	ExperimentGroupID     string  `json:"eg_user"`
	ExperimentActionID    string  `json:"eg_action_id"`
	MainActionID          string  `json:"main_action_id"`
	ExperimentActionValue float64 `json:"exp_action_value"`
	MainActionValue       float64 `json:"main_action_value"`
}

// HasIdentity reports whether the config names an ad and a version. Configs
// without identity are treated as absent and never cached.
func (c AdExperimentConfig) HasIdentity() bool {
	return c.AdID != 0 && c.Version != ""
}

func (c AdExperimentConfig) InControlGroup(userGroup string) bool {
	return userGroup == c.ControlGroupID
}

func (c AdExperimentConfig) InExperimentGroup(userGroup string) bool {
	return userGroup == c.ExperimentGroupID
}

// TargetCTR selects the experiment value for the experiment group and the
// main value for everyone else.
func (c AdExperimentConfig) TargetCTR(userGroup string) float64 {
	if c.InExperimentGroup(userGroup) {
		return c.ExperimentActionValue
	}
	return c.MainActionValue
}
