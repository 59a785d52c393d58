// Package wildtag classifies wildlife photos with an ensemble of pretrained
// image classifiers, maps raw labels onto a small set of domain categories,
// and renames, tags and reports on the images it accepts.
package wildtag

import (
	"context"
	"time"
)

// TopScoresPerCategory is how many of the highest matching confidences are
// averaged into a category score.
const TopScoresPerCategory = 3

// DefaultLandscapeMinConfidence is the minimum confidence for a landscape
// feature to be reported.
const DefaultLandscapeMinConfidence = 0.15

// DefaultExtensions is the file extension allow-list for input images.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// Cache abstracts key-value caching of analysis results (in-memory, Redis, etc.)
type Cache interface {
	Key(prefix, value string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	AnimalModels    []Model // required: subject classifiers (ensemble)
	LandscapeModels []Model // optional: scenery classifiers (nil = no features)

	Animals    CategoryMap // default: DefaultAnimalCategories()
	Landscapes CategoryMap // default: DefaultLandscapeCategories()
	Thresholds Thresholds  // zero value = DefaultThresholds() unless ThresholdsSet

	// LandscapeMinConfidence is the strict lower bound for a landscape
	// feature (default: DefaultLandscapeMinConfidence unless ThresholdsSet).
	LandscapeMinConfidence float64

	// ThresholdsSet marks Thresholds and LandscapeMinConfidence as configured
	// by the caller, so zero values are kept as real bounds.
	ThresholdsSet bool

	// Augmentations applied to every animal model input (default: DefaultAugmentations()).
	// Landscape models always run on the unmodified image only.
	Augmentations []Augmentation

	TopScores  int      // default: TopScoresPerCategory
	Extensions []string // default: DefaultExtensions
	Workers    int      // parallel analysis workers (default: 1 = sequential)

	BackupDir string // default: <input>/backup
	// Sort moves accepted files into processed/ and rejected ones into rejected/
	// next to the input directory instead of leaving them in place.
	Sort bool
	// DetectDuplicates marks perceptual near-duplicates within a batch.
	DetectDuplicates bool

	Cache Cache            // optional: analysis cache keyed by file content
	Now   func() time.Time // default: time.Now

	// Optional callbacks for metrics/logging.
	OnResult func(ImageResult)
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if len(c.Animals) == 0 {
		c.Animals = DefaultAnimalCategories()
	}
	if len(c.Landscapes) == 0 {
		c.Landscapes = DefaultLandscapeCategories()
	}
	if !c.ThresholdsSet {
		if c.Thresholds.Default <= 0 && len(c.Thresholds.PerCategory) == 0 {
			c.Thresholds = DefaultThresholds()
		}
		if c.LandscapeMinConfidence <= 0 {
			c.LandscapeMinConfidence = DefaultLandscapeMinConfidence
		}
	}
	if c.Augmentations == nil {
		c.Augmentations = DefaultAugmentations()
	}
	if c.TopScores <= 0 {
		c.TopScores = TopScoresPerCategory
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
