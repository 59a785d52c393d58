package wildtag

import (
	"image"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash values
// below which images are considered perceptually identical.
const dedupThreshold = 10

// perceptualHash returns the 64-bit dHash of img. ok is false when hashing fails.
func perceptualHash(img image.Image) (hash uint64, ok bool) {
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, false
	}
	return h.GetHash(), true
}

// dedupFilter remembers the images of one batch and reports near-duplicates.
// It is safe for concurrent use.
type dedupFilter struct {
	mu   sync.Mutex
	seen []dedupEntry
}

type dedupEntry struct {
	hash *goimagehash.ImageHash
	name string
}

// duplicateOf returns the name of a previously seen image perceptually
// identical to the dHash value, or "" if there is none. Unique images are
// remembered under name.
func (d *dedupFilter) duplicateOf(value uint64, name string) string {
	hash := goimagehash.NewImageHash(value, goimagehash.DHash)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.seen {
		dist, err := hash.Distance(e.hash)
		if err == nil && dist < dedupThreshold {
			return e.name
		}
	}

	d.seen = append(d.seen, dedupEntry{hash: hash, name: name})
	return ""
}
