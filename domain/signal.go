package domain

// RangeBucket maps the score interval described by Min and Max to Value.
type RangeBucket struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
}
