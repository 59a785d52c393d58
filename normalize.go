package wildtag

import (
	"fmt"
	"strings"
)

// Normalizer converts a [0, 255] RGB tensor into the value range a model
// was trained on. It returns a new tensor.
type Normalizer func(*Tensor) *Tensor

// Normalization modes understood by NormalizerByName.
const (
	NormalizeTF    = "tf"    // scale to [-1, 1] (ResNetV2, MobileNet, Inception)
	NormalizeTorch = "torch" // scale to [0, 1], then ImageNet mean/std (DenseNet)
	NormalizeCaffe = "caffe" // RGB→BGR, subtract ImageNet mean (ResNet50, VGG)
	NormalizeNone  = "none"  // raw pixels (EfficientNet rescales internally)
)

var (
	imagenetMean = [channels]float32{0.485, 0.456, 0.406}
	imagenetStd  = [channels]float32{0.229, 0.224, 0.225}
	caffeMeanBGR = [channels]float32{103.939, 116.779, 123.68}
)

// NormalizerByName returns the normalizer for mode. Empty means NormalizeNone.
func NormalizerByName(mode string) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case NormalizeTF:
		return normalizeTF, nil
	case NormalizeTorch:
		return normalizeTorch, nil
	case NormalizeCaffe:
		return normalizeCaffe, nil
	case NormalizeNone, "raw", "":
		return Identity, nil
	default:
		return nil, fmt.Errorf("unknown normalization %q", mode)
	}
}

func normalizeTF(t *Tensor) *Tensor {
	out := NewTensor(t.Width, t.Height)
	for i, v := range t.Data {
		out.Data[i] = v/127.5 - 1
	}
	return out
}

func normalizeTorch(t *Tensor) *Tensor {
	out := NewTensor(t.Width, t.Height)
	for i, v := range t.Data {
		ch := i % channels
		out.Data[i] = (v/maxPixel - imagenetMean[ch]) / imagenetStd[ch]
	}
	return out
}

func normalizeCaffe(t *Tensor) *Tensor {
	out := NewTensor(t.Width, t.Height)
	for i := 0; i < len(t.Data); i += channels {
		r, g, b := t.Data[i], t.Data[i+1], t.Data[i+2]
		out.Data[i] = b - caffeMeanBGR[0]
		out.Data[i+1] = g - caffeMeanBGR[1]
		out.Data[i+2] = r - caffeMeanBGR[2]
	}
	return out
}
