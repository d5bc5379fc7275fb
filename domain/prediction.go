package domain

type PredictRequest struct {
	User        string  `json:"usr"`
	AdIDs       []int64 `json:"ad_id"`
	ServiceType int64   `json:"service_type"`
	Model       string  `json:"model"`
	IsDebug     bool    `json:"is_debug"`
}

type PredictionItem struct {
	AdID  int64 `json:"ad_id"`
	Value uint8 `json:"value"`
}

type PredictResponse struct {
	Code  int              `json:"code"`
	Msg   string           `json:"msg"`
	Items []PredictionItem `json:"items"`
}

// ScoreBreakdown carries every intermediate value of one ad's decision.
type ScoreBreakdown struct {
	AdID      int64  `json:"ad_id"`
	UserGroup string `json:"user_group"`
	Version   string `json:"version"`

	FillRate  float64 `json:"fill_rate"`
	ShowRate  float64 `json:"show_rate"`
	ClickRate float64 `json:"click_rate"`
	WindowCTR float64 `json:"window_ctr"`
	TargetCTR float64 `json:"target_ctr"`

	RateA float64 `json:"rate_a"` // tempt-click multiplier
	RateB float64 `json:"rate_b"` // fill-rate multiplier
	RateC float64 `json:"rate_c"` // show-rate multiplier
	RateD float64 `json:"rate_d"` // click-rate multiplier

	RawTotal   float64 `json:"raw_total"`
	Adjustment string  `json:"adjustment"` // "boost", "damp" or "none"
	Total      float64 `json:"total"`
	BaseValue  float64 `json:"base_value"`
	InExpGroup bool    `json:"in_exp_group"`
	Decision   uint8   `json:"decision"`
}

type ExplainResponse struct {
	Code  int              `json:"code"`
	Msg   string           `json:"msg"`
	Items []ScoreBreakdown `json:"items"`
}
