package domain

// AdEvent holds raw counters for one (ad, segment, window).
type AdEvent struct {
	Requests int64 `json:"requests"`
	Fills    int64 `json:"fills"`
	Shows    int64 `json:"shows"`
	Clicks   int64 `json:"clicks"`
}

// FillRate is fills over requests with additive smoothing.
func (e AdEvent) FillRate(ab ABParams) float64 {
	return (float64(e.Fills) + ab.FillA) / (float64(e.Requests+1) + ab.FillB)
}

func (e AdEvent) ShowRate(ab ABParams) float64 {
	return (float64(e.Shows) + ab.ShowA) / (float64(e.Fills+1) + ab.ShowB)
}

func (e AdEvent) ClickRate(ab ABParams) float64 {
	return (float64(e.Clicks) + ab.ClickA) / (float64(e.Shows+1) + ab.ClickB)
}

// RawClickRate is the unsmoothed click-through rate.
func (e AdEvent) RawClickRate() float64 {
	return float64(e.Clicks) / (float64(e.Shows) + 1)
}
