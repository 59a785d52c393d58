package wildtag

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// ErrNoModels is returned when a predictor is built without any model.
var ErrNoModels = errors.New("wildtag: no models configured")

// Classifier abstracts a pretrained image classifier. Given a normalized
// tensor it returns its top guesses, best first.
type Classifier interface {
	Classify(ctx context.Context, input *Tensor) ([]Prediction, error)
}

// Model pairs a classifier with the input size and normalization it expects.
type Model struct {
	Name       string
	Width      int
	Height     int
	Normalize  Normalizer // nil = raw pixels
	Classifier Classifier
}

// Predictor runs every model over every augmentation of an image.
type Predictor struct {
	models        []Model
	augmentations []Augmentation
}

// NewPredictor creates a predictor. An empty augmentation list means the
// image is classified once, unmodified.
func NewPredictor(models []Model, augmentations []Augmentation) (*Predictor, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	for _, m := range models {
		if m.Classifier == nil {
			return nil, fmt.Errorf("wildtag: model %q: nil classifier", m.Name)
		}
		if m.Width <= 0 || m.Height <= 0 {
			return nil, fmt.Errorf("wildtag: model %q: invalid input size %dx%d", m.Name, m.Width, m.Height)
		}
	}
	if len(augmentations) == 0 {
		augmentations = IdentityOnly()
	}
	return &Predictor{models: models, augmentations: augmentations}, nil
}

// Predict returns the union of raw predictions across all models and
// augmentations. A model that fails is logged and contributes nothing;
// the remaining models still run. Only context cancellation is returned
// as an error.
func (p *Predictor) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	var all []Prediction
	for _, m := range p.models {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		all = append(all, p.runModel(ctx, m, img)...)
	}
	return all, nil
}

func (p *Predictor) runModel(ctx context.Context, m Model, img image.Image) (preds []Prediction) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("wildtag: classifier panic", "model", m.Name, "panic", r)
			preds = nil
		}
	}()

	base := TensorFromImage(img, m.Width, m.Height)
	for _, aug := range p.augmentations {
		input := aug.Apply(base)
		if m.Normalize != nil {
			input = m.Normalize(input)
		}

		out, err := m.Classifier.Classify(ctx, input)
		if err != nil {
			slog.Warn("wildtag: classifier failed", "model", m.Name, "augmentation", aug.Name, "error", err.Error())
			return nil
		}
		for _, pr := range out {
			pr.Confidence = clampUnit(pr.Confidence)
			preds = append(preds, pr)
		}
	}

	slog.Debug("wildtag: model predictions", "model", m.Name, "count", len(preds))
	return preds
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0 || v != v: // NaN
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
