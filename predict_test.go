package wildtag

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
)

// fakeClassifier returns fixed predictions and records the inputs it saw.
type fakeClassifier struct {
	preds []Prediction
	err   error
	panic bool

	mu     sync.Mutex
	inputs []*Tensor
}

func (f *fakeClassifier) Classify(ctx context.Context, input *Tensor) ([]Prediction, error) {
	if f.panic {
		panic("model exploded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	return f.preds, f.err
}

func (f *fakeClassifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func fakeModel(name string, c Classifier) Model {
	return Model{Name: name, Width: 8, Height: 8, Classifier: c}
}

func testImage() image.Image {
	return solidImage(16, 16, color.RGBA{R: 180, G: 140, B: 90, A: 255})
}

func TestNewPredictor_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewPredictor(nil, nil); !errors.Is(err, ErrNoModels) {
		t.Errorf("no models: error = %v, want ErrNoModels", err)
	}
	if _, err := NewPredictor([]Model{{Name: "x", Width: 8, Height: 8}}, nil); err == nil {
		t.Error("expected error for nil classifier")
	}
	if _, err := NewPredictor([]Model{{Name: "x", Classifier: &fakeClassifier{}}}, nil); err == nil {
		t.Error("expected error for zero input size")
	}
}

func TestPredict_UnionAcrossModelsAndAugmentations(t *testing.T) {
	t.Parallel()

	a := &fakeClassifier{preds: []Prediction{{"lion", 0.9}}}
	b := &fakeClassifier{preds: []Prediction{{"zebra", 0.4}, {"tabby", 0.1}}}
	p, err := NewPredictor([]Model{fakeModel("a", a), fakeModel("b", b)}, DefaultAugmentations())
	if err != nil {
		t.Fatal(err)
	}

	preds, err := p.Predict(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if want := 4 * (1 + 2); len(preds) != want {
		t.Errorf("len(preds) = %d, want %d", len(preds), want)
	}
	if a.calls() != 4 || b.calls() != 4 {
		t.Errorf("calls = %d, %d, want 4 each", a.calls(), b.calls())
	}
	if preds[0].Label != "lion" {
		t.Errorf("first prediction = %+v, want model order", preds[0])
	}
}

func TestPredict_InputSizeAndNormalization(t *testing.T) {
	t.Parallel()

	c := &fakeClassifier{}
	m := Model{Name: "tf", Width: 5, Height: 7, Classifier: c}
	m.Normalize, _ = NormalizerByName(NormalizeTF)

	p, err := NewPredictor([]Model{m}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Predict(context.Background(), testImage()); err != nil {
		t.Fatal(err)
	}
	if c.calls() != 1 {
		t.Fatalf("calls = %d, want 1 with identity only", c.calls())
	}
	in := c.inputs[0]
	if in.Width != 5 || in.Height != 7 {
		t.Errorf("input = %dx%d, want 5x7", in.Width, in.Height)
	}
	for _, v := range in.Data {
		if v < -1 || v > 1 {
			t.Fatalf("value %v not tf-normalized", v)
		}
	}
}

func TestPredict_FailingModelIsolated(t *testing.T) {
	t.Parallel()

	good := &fakeClassifier{preds: []Prediction{{"hippo", 0.7}}}
	tests := []struct {
		name string
		bad  *fakeClassifier
	}{
		{"error", &fakeClassifier{err: errors.New("decode failed")}},
		{"panic", &fakeClassifier{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPredictor([]Model{fakeModel("bad", tt.bad), fakeModel("good", good)}, IdentityOnly())
			if err != nil {
				t.Fatal(err)
			}
			preds, err := p.Predict(context.Background(), testImage())
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if len(preds) != 1 || preds[0].Label != "hippo" {
				t.Errorf("preds = %+v, want only the good model's", preds)
			}
		})
	}
}

func TestPredict_ClampsConfidence(t *testing.T) {
	t.Parallel()

	c := &fakeClassifier{preds: []Prediction{{"a", 1.5}, {"b", -0.2}, {"c", math.NaN()}, {"d", 0.4}}}
	p, err := NewPredictor([]Model{fakeModel("m", c)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	preds, _ := p.Predict(context.Background(), testImage())
	want := []float64{1, 0, 0, 0.4}
	for i, w := range want {
		if preds[i].Confidence != w {
			t.Errorf("preds[%d] = %v, want %v", i, preds[i].Confidence, w)
		}
	}
	if c.preds[0].Confidence != 1.5 {
		t.Error("clamping modified the classifier's slice")
	}
}

func TestPredict_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &fakeClassifier{preds: []Prediction{{"lion", 0.9}}}
	p, _ := NewPredictor([]Model{fakeModel("m", c)}, nil)
	if _, err := p.Predict(ctx, testImage()); !errors.Is(err, context.Canceled) {
		t.Errorf("Predict() error = %v, want context.Canceled", err)
	}
	if c.calls() != 0 {
		t.Error("classifier called after cancellation")
	}
}
