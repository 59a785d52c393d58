package wildtag

import (
	"sort"
	"strings"
)

// Prediction is one (label, confidence) guess from a classifier.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// CategoryScore is the aggregated confidence for one category.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Matches  int     `json:"matches"` // matching predictions seen, before the top-N cut
}

// AggregatedScore holds one entry per matched category, in the order the
// categories were first matched while scanning the predictions.
type AggregatedScore []CategoryScore

// ClassificationResult is the final decision for an image.
// Category is empty when nothing matched.
type ClassificationResult struct {
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

// HasCategory reports whether a category was selected.
func (r ClassificationResult) HasCategory() bool {
	return r.Category != ""
}

// Aggregate maps every prediction onto the categories whose keywords match
// its label and scores each category as the mean of its topN highest
// confidences (fewer if fewer matched). topN <= 0 means TopScoresPerCategory.
func Aggregate(preds []Prediction, cats CategoryMap, topN int) AggregatedScore {
	if topN <= 0 {
		topN = TopScoresPerCategory
	}

	groups := make(map[string][]float64)
	order := make([]string, 0) // first-seen category order

	for _, p := range preds {
		lower := strings.ToLower(p.Label)
		for _, c := range cats {
			if !c.matches(lower) {
				continue
			}
			if _, seen := groups[c.Name]; !seen {
				order = append(order, c.Name)
			}
			groups[c.Name] = append(groups[c.Name], p.Confidence)
		}
	}

	scores := make(AggregatedScore, 0, len(order))
	for _, name := range order {
		confs := append([]float64(nil), groups[name]...)
		sort.Sort(sort.Reverse(sort.Float64Slice(confs)))

		top := confs
		if len(top) > topN {
			top = top[:topN]
		}
		scores = append(scores, CategoryScore{
			Category: name,
			Score:    mean(top),
			Matches:  len(confs),
		})
	}
	return scores
}

// Score returns the aggregated score for category, if present.
func (s AggregatedScore) Score(category string) (float64, bool) {
	for _, cs := range s {
		if cs.Category == category {
			return cs.Score, true
		}
	}
	return 0, false
}

// Best returns the highest-scoring category. Ties go to the category that was
// matched first. An empty score yields the zero ClassificationResult.
func (s AggregatedScore) Best() ClassificationResult {
	var best ClassificationResult
	for i, cs := range s {
		if i == 0 || cs.Score > best.Confidence {
			best = ClassificationResult{Category: cs.Category, Confidence: cs.Score}
		}
	}
	return best
}

// Classify aggregates preds over cats and returns the winning category.
func Classify(preds []Prediction, cats CategoryMap) ClassificationResult {
	return Aggregate(preds, cats, TopScoresPerCategory).Best()
}

// DetectFeatures returns the names of categories matched by at least one
// prediction whose confidence is strictly above minConfidence. Each name
// appears once, in order of first detection.
func DetectFeatures(preds []Prediction, cats CategoryMap, minConfidence float64) []string {
	var features []string
	seen := make(map[string]bool)
	for _, p := range preds {
		if p.Confidence <= minConfidence {
			continue
		}
		for _, name := range cats.Match(p.Label) {
			if !seen[name] {
				seen[name] = true
				features = append(features, name)
			}
		}
	}
	return features
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
