package onnx

import (
	"fmt"
	"math"
	"sort"

	wildtag "github.com/anatolykoptev/go-wildtag"
)

// pack converts an HWC tensor into a batch-of-one input in the given layout.
func pack(t *wildtag.Tensor, layout Layout) ([]float32, []int64, error) {
	w, h := int64(t.Width), int64(t.Height)
	switch layout {
	case LayoutNHWC:
		data := make([]float32, len(t.Data))
		copy(data, t.Data)
		return data, []int64{1, h, w, 3}, nil
	case LayoutNCHW:
		plane := t.Width * t.Height
		data := make([]float32, len(t.Data))
		for i := range plane {
			data[i] = t.Data[i*3]
			data[plane+i] = t.Data[i*3+1]
			data[2*plane+i] = t.Data[i*3+2]
		}
		return data, []int64{1, 3, h, w}, nil
	default:
		return nil, nil, fmt.Errorf("onnx: unknown layout %q", layout)
	}
}

// Softmax converts logits into probabilities.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// TopK returns the k highest-scoring labels, best first. Equal scores keep
// label index order.
func TopK(scores []float32, labels []string, k int) []wildtag.Prediction {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}
	preds := make([]wildtag.Prediction, 0, k)
	for _, i := range idx[:k] {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		preds = append(preds, wildtag.Prediction{Label: label, Confidence: float64(scores[i])})
	}
	return preds
}
