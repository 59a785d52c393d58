package wildtag

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// ErrDecode wraps image decoding failures.
var ErrDecode = errors.New("wildtag: cannot decode image")

// LoadImage reads path and decodes it. The raw bytes are returned alongside
// the decoded image for hashing and metadata extraction.
func LoadImage(path string) (image.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, data, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return img, data, nil
}

// ValidateImage checks that path holds a decodable image with non-zero
// dimensions, reading only the header.
func ValidateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("%w: %s: empty image", ErrDecode, path)
	}
	return nil
}
