package wildtag

import (
	"image"
	"image/color"
	"math/bits"
	"testing"
)

// gradientImage returns a horizontal grayscale ramp, rising or falling.
func gradientImage(w, h int, rising bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(x * 255 / (w - 1))
			if !rising {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestDedupFilter(t *testing.T) {
	t.Parallel()

	var d dedupFilter
	if got := d.duplicateOf(0, "a.jpg"); got != "" {
		t.Errorf("first image reported as duplicate of %q", got)
	}
	if got := d.duplicateOf(0b111, "b.jpg"); got != "a.jpg" {
		t.Errorf("distance 3: duplicateOf = %q, want a.jpg", got)
	}
	if got := d.duplicateOf(^uint64(0), "c.jpg"); got != "" {
		t.Errorf("distance 64: duplicateOf = %q, want none", got)
	}
	if got := d.duplicateOf(^uint64(0)>>1, "d.jpg"); got != "c.jpg" {
		t.Errorf("duplicateOf = %q, want c.jpg", got)
	}
	if len(d.seen) != 2 {
		t.Errorf("remembered %d images, want only the 2 unique ones", len(d.seen))
	}
}

func TestDedupFilter_ThresholdIsExclusive(t *testing.T) {
	t.Parallel()

	var d dedupFilter
	d.duplicateOf(0, "a.jpg")
	tenBits := uint64(1)<<dedupThreshold - 1
	if got := d.duplicateOf(tenBits, "b.jpg"); got != "" {
		t.Errorf("distance %d should not count as duplicate, got %q", dedupThreshold, got)
	}
}

func TestPerceptualHash(t *testing.T) {
	t.Parallel()

	rising, ok := perceptualHash(gradientImage(90, 60, true))
	if !ok {
		t.Fatal("hash failed")
	}
	again, _ := perceptualHash(gradientImage(90, 60, true))
	if rising != again {
		t.Errorf("hash not deterministic: %x vs %x", rising, again)
	}

	falling, _ := perceptualHash(gradientImage(90, 60, false))
	if dist := bits.OnesCount64(rising ^ falling); dist < dedupThreshold {
		t.Errorf("mirrored gradients distance = %d, want >= %d", dist, dedupThreshold)
	}
}
