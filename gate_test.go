package wildtag

import "testing"

func TestThresholds_Accept(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		name string
		in   ClassificationResult
		want bool
	}{
		{"above default", ClassificationResult{"zebra", 0.36}, true},
		{"equal to default", ClassificationResult{"zebra", 0.35}, false},
		{"below default", ClassificationResult{"zebra", 0.2}, false},
		{"lion_cub lower threshold", ClassificationResult{"lion_cub", 0.31}, true},
		{"lion_cub equal", ClassificationResult{"lion_cub", 0.3}, false},
		{"bird higher threshold", ClassificationResult{"bird", 0.38}, false},
		{"bird above", ClassificationResult{"bird", 0.41}, true},
		{"no category", ClassificationResult{"", 0.99}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := th.Accept(tt.in); got != tt.want {
				t.Errorf("Accept(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestThresholds_For(t *testing.T) {
	t.Parallel()

	th := Thresholds{Default: 0.5, PerCategory: map[string]float64{"hyena": 0.7}}
	if got := th.For("hyena"); got != 0.7 {
		t.Errorf("For(hyena) = %v, want 0.7", got)
	}
	if got := th.For("zebra"); got != 0.5 {
		t.Errorf("For(zebra) = %v, want fallback 0.5", got)
	}

	var zero Thresholds
	if got := zero.For("zebra"); got != 0 {
		t.Errorf("zero Thresholds.For = %v, want 0", got)
	}
}
