package wildtag

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the container format, dimensions and the EXIF/XMP
// fields reported for each image.
type ImageMetadata struct {
	Format      string    `json:"format"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	Copyright   string    `json:"copyright,omitempty"`
	UserComment string    `json:"user_comment,omitempty"`
	TakenAt     time.Time `json:"taken_at,omitzero"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	HasGPS      bool      `json:"has_gps,omitempty"`
}

// imagemetaFormats maps image.Decode format names to imagemeta formats.
var imagemetaFormats = map[string]imagemeta.ImageFormat{
	"jpeg": imagemeta.JPEG,
	"png":  imagemeta.PNG,
	"webp": imagemeta.WebP,
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Make":               true,
		"Model":              true,
		"Artist":             true,
		"Copyright":          true,
		"UserComment":        true,
		"DateTimeOriginal":   true,
		"DateTime":           true,
		"OffsetTimeOriginal": true,
		"GPSLatitude":        true,
		"GPSLatitudeRef":     true,
		"GPSLongitude":       true,
		"GPSLongitudeRef":    true,
	},
	imagemeta.XMP: {
		"Creator": true,
		"Rights":  true,
	},
}

// ExtractImageMetadata reads format, dimensions and EXIF/XMP fields from raw
// image bytes. Returns nil if the data is empty or not a decodable image.
// Missing or unreadable metadata leaves the corresponding fields empty.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	meta := &ImageMetadata{Format: format, Width: cfg.Width, Height: cfg.Height}

	imf, ok := imagemetaFormats[format]
	if !ok {
		return meta
	}

	var tags imagemeta.Tags
	_, err = imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: imf,
		Sources:     imagemeta.EXIF | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if names, ok := wantedTags[ti.Source]; ok {
				return names[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			tags.Add(ti)
			switch ti.Source {
			case imagemeta.EXIF:
				handleEXIFTag(meta, ti)
			case imagemeta.XMP:
				handleXMPTag(meta, ti)
			}
			return nil
		},
	})
	if err != nil {
		// Partial metadata is still useful; the image itself decoded fine.
		return meta
	}

	if t, err := tags.GetDateTime(); err == nil && !t.IsZero() {
		meta.TakenAt = t
	}
	if lat, long, err := tags.GetLatLong(); err == nil && (lat != 0 || long != 0) {
		meta.Latitude, meta.Longitude, meta.HasGPS = lat, long, true
	}

	return meta
}

// handleEXIFTag sets the appropriate ImageMetadata field for an EXIF tag.
func handleEXIFTag(meta *ImageMetadata, ti imagemeta.TagInfo) {
	s := strings.TrimSpace(tagValueString(ti.Value))
	if s == "" {
		return
	}

	switch ti.Tag {
	case "Make":
		meta.Make = s
	case "Model":
		meta.Model = s
	case "Artist":
		meta.Artist = s
	case "Copyright":
		meta.Copyright = s
	case "UserComment":
		meta.UserComment = s
	}
}

// handleXMPTag fills fields EXIF left empty from their Dublin Core equivalents.
func handleXMPTag(meta *ImageMetadata, ti imagemeta.TagInfo) {
	s := tagValueString(ti.Value)
	if s == "" {
		return
	}

	switch ti.Tag {
	case "Creator":
		if meta.Artist == "" {
			meta.Artist = s
		}
	case "Rights":
		if meta.Copyright == "" {
			meta.Copyright = s
		}
	}
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return strings.TrimRight(string(val), "\x00")
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

// BuildComment renders the metadata comment stamped into accepted images.
func BuildComment(r ClassificationResult, features []string, at time.Time) string {
	return fmt.Sprintf("Animal: %s\nConfidence: %.2f\nLandscape Features: %s\nProcessed: %s",
		r.Category, r.Confidence, featureList(features, ", "), at.Format(time.RFC3339))
}

// featureList joins features with sep, or returns "general" when empty.
func featureList(features []string, sep string) string {
	if len(features) == 0 {
		return "general"
	}
	return strings.Join(features, sep)
}
