// Package onnx runs pretrained ImageNet-style classifiers exported to ONNX
// and exposes them as wildtag.Classifier implementations.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	wildtag "github.com/anatolykoptev/go-wildtag"
)

// ErrRuntimeUnavailable is returned when the binary was built without cgo
// or the ONNX Runtime shared library was never initialized.
var ErrRuntimeUnavailable = errors.New("onnx: runtime unavailable")

// Layout is the memory order of the model input tensor.
type Layout string

const (
	LayoutNHWC Layout = "nhwc" // Keras / TensorFlow exports
	LayoutNCHW Layout = "nchw" // PyTorch exports
)

// defaultTopK is the number of guesses decoded per image.
const defaultTopK = 10

// Options describes one ONNX classifier.
type Options struct {
	Name         string
	ModelPath    string
	LabelsPath   string
	Width        int
	Height       int
	Layout       Layout // default: LayoutNHWC
	InputName    string // default: first model input
	OutputName   string // default: first model output
	TopK         int    // default: 10
	ApplySoftmax bool   // set when the model emits logits
}

// session is the part of an ONNX Runtime session the classifier needs.
type session interface {
	run(input []float32, shape []int64, numClasses int) ([]float32, error)
	close() error
}

// Classifier is a wildtag.Classifier backed by an ONNX model.
type Classifier struct {
	opts   Options
	labels []string
	sess   session
}

var _ wildtag.Classifier = (*Classifier)(nil)

// New loads the labels and opens a session for opts.ModelPath.
// Init must have been called first.
func New(opts Options) (*Classifier, error) {
	opts.defaults()
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("onnx: %s: invalid input size %dx%d", opts.Name, opts.Width, opts.Height)
	}

	labels, err := LoadLabels(opts.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %s: %w", opts.Name, err)
	}

	sess, err := newSession(opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: %s: %w", opts.Name, err)
	}
	return &Classifier{opts: opts, labels: labels, sess: sess}, nil
}

func (o *Options) defaults() {
	o.Layout = Layout(strings.ToLower(string(o.Layout)))
	if o.Layout == "" {
		o.Layout = LayoutNHWC
	}
	if o.TopK <= 0 {
		o.TopK = defaultTopK
	}
	if o.Name == "" {
		o.Name = o.ModelPath
	}
}

// Classify runs the model on input and returns its TopK guesses.
func (c *Classifier) Classify(ctx context.Context, input *wildtag.Tensor) ([]wildtag.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Width != c.opts.Width || input.Height != c.opts.Height {
		return nil, fmt.Errorf("onnx: %s: input is %dx%d, model expects %dx%d",
			c.opts.Name, input.Width, input.Height, c.opts.Width, c.opts.Height)
	}

	data, shape, err := pack(input, c.opts.Layout)
	if err != nil {
		return nil, err
	}

	scores, err := c.sess.run(data, shape, len(c.labels))
	if err != nil {
		return nil, fmt.Errorf("onnx: %s: run: %w", c.opts.Name, err)
	}
	if len(scores) != len(c.labels) {
		return nil, fmt.Errorf("onnx: %s: model returned %d scores for %d labels",
			c.opts.Name, len(scores), len(c.labels))
	}
	if c.opts.ApplySoftmax {
		scores = Softmax(scores)
	}
	return TopK(scores, c.labels, c.opts.TopK), nil
}

// Close releases the session.
func (c *Classifier) Close() error {
	return c.sess.close()
}
