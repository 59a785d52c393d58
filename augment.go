package wildtag

import (
	"image"

	"golang.org/x/image/draw"
)

// channels is the number of color channels in a Tensor (RGB).
const channels = 3

// maxPixel is the upper bound of a Tensor value.
const maxPixel = 255.0

// Tensor is an HWC RGB image with float32 values in [0, 255] before
// normalization.
type Tensor struct {
	Width  int
	Height int
	Data   []float32 // len = Width*Height*3, row-major, RGB interleaved
}

// NewTensor allocates a zeroed w×h tensor.
func NewTensor(w, h int) *Tensor {
	return &Tensor{Width: w, Height: h, Data: make([]float32, w*h*channels)}
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{Width: t.Width, Height: t.Height, Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// At returns the value of channel ch at (x, y).
func (t *Tensor) At(x, y, ch int) float32 {
	return t.Data[(y*t.Width+x)*channels+ch]
}

// TensorFromImage scales img to w×h with bilinear interpolation and converts
// it to a Tensor.
func TensorFromImage(img image.Image, w, h int) *Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := NewTensor(w, h)
	for i, j := 0, 0; i < len(dst.Pix); i, j = i+4, j+channels {
		t.Data[j] = float32(dst.Pix[i])
		t.Data[j+1] = float32(dst.Pix[i+1])
		t.Data[j+2] = float32(dst.Pix[i+2])
	}
	return t
}

// Augmentation is a deterministic image transform applied before
// classification. Apply must not modify its argument.
type Augmentation struct {
	Name  string
	Apply func(*Tensor) *Tensor
}

const (
	// brightnessDelta is a fraction of full scale, so the shift is 51 on
	// 0-255 pixels. Adding a raw 0.2 to 0-255 values would leave the image
	// unchanged and turn the augmentation into a second identity pass.
	brightnessDelta = 0.2
	contrastFactor  = 1.2
)

// DefaultAugmentations returns identity, horizontal flip, brightness and
// contrast, in that order.
func DefaultAugmentations() []Augmentation {
	return []Augmentation{
		{Name: "identity", Apply: Identity},
		{Name: "flip", Apply: FlipHorizontal},
		{Name: "brightness", Apply: func(t *Tensor) *Tensor { return AdjustBrightness(t, brightnessDelta) }},
		{Name: "contrast", Apply: func(t *Tensor) *Tensor { return AdjustContrast(t, contrastFactor) }},
	}
}

// IdentityOnly is the augmentation set used for single-pass models.
func IdentityOnly() []Augmentation {
	return []Augmentation{{Name: "identity", Apply: Identity}}
}

// Identity returns a copy of t.
func Identity(t *Tensor) *Tensor {
	return t.Clone()
}

// FlipHorizontal mirrors t left to right.
func FlipHorizontal(t *Tensor) *Tensor {
	out := NewTensor(t.Width, t.Height)
	for y := range t.Height {
		row := y * t.Width
		for x := range t.Width {
			src := (row + x) * channels
			dst := (row + t.Width - 1 - x) * channels
			copy(out.Data[dst:dst+channels], t.Data[src:src+channels])
		}
	}
	return out
}

// AdjustBrightness adds delta*255 to every value and clamps to [0,255].
// delta is a fraction of full scale, not a raw pixel offset.
func AdjustBrightness(t *Tensor, delta float64) *Tensor {
	out := NewTensor(t.Width, t.Height)
	shift := float32(delta * maxPixel)
	for i, v := range t.Data {
		out.Data[i] = clampPixel(v + shift)
	}
	return out
}

// AdjustContrast scales each channel's distance from its mean by factor.
func AdjustContrast(t *Tensor, factor float64) *Tensor {
	out := NewTensor(t.Width, t.Height)
	n := t.Width * t.Height
	if n == 0 {
		return out
	}

	var sums [channels]float64
	for i, v := range t.Data {
		sums[i%channels] += float64(v)
	}
	var means [channels]float64
	for ch := range channels {
		means[ch] = sums[ch] / float64(n)
	}

	for i, v := range t.Data {
		m := means[i%channels]
		out.Data[i] = clampPixel(float32((float64(v)-m)*factor + m))
	}
	return out
}

func clampPixel(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > maxPixel:
		return maxPixel
	default:
		return v
	}
}
