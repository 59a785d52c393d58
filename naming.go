package wildtag

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NewFileName builds the name given to an accepted image:
// {category}_{features|general}_{YYYYMMDD}_{seq:04d}{ext}.
// The extension is taken from original and lowercased.
func NewFileName(original, category string, features []string, at time.Time, seq int) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s_%s_%s_%04d%s",
		category, featureList(features, "_"), at.Format("20060102"), seq, ext)
}
