package wildtag

// Thresholds holds the minimum confidence per category.
type Thresholds struct {
	Default     float64            `json:"default" yaml:"default"`
	PerCategory map[string]float64 `json:"categories,omitempty" yaml:"categories"`
}

// DefaultThresholds returns the built-in per-category minimums.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Default: 0.35,
		PerCategory: map[string]float64{
			"lion_cub": 0.3,
			"bird":     0.4,
		},
	}
}

// For returns the threshold for category, falling back to Default.
func (t Thresholds) For(category string) float64 {
	if v, ok := t.PerCategory[category]; ok {
		return v
	}
	return t.Default
}

// Accept reports whether r names a category and its confidence strictly
// exceeds that category's threshold.
func (t Thresholds) Accept(r ClassificationResult) bool {
	if !r.HasCategory() {
		return false
	}
	return r.Confidence > t.For(r.Category)
}
