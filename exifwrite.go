package wildtag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	exifundefined "github.com/dsoprea/go-exif/v3/undefined"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// ErrMetadataUnsupported is returned by WriteComment for formats without an
// EXIF container we can write (anything but JPEG).
var ErrMetadataUnsupported = errors.New("wildtag: metadata writing not supported for this format")

// WriteComment stores comment in the EXIF UserComment tag of the JPEG at
// path, keeping every other tag. The file is replaced atomically.
func WriteComment(path, comment string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
	default:
		return fmt.Errorf("%w: %s", ErrMetadataUnsupported, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	mc, err := jpegstructure.NewJpegMediaParser().ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse jpeg: %w", err)
	}
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok {
		return fmt.Errorf("parse jpeg: unexpected media context %T", mc)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		// No EXIF segment yet: start an empty IFD0.
		rootIb, err = newRootIfdBuilder()
		if err != nil {
			return err
		}
	}

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("exif ifd: %w", err)
	}
	uc := exifundefined.Tag9286UserComment{
		EncodingType:  exifundefined.TagUndefinedType_9286_UserComment_Encoding_ASCII,
		EncodingBytes: []byte(comment),
	}
	if err := exifIb.SetStandardWithName("UserComment", uc); err != nil {
		return fmt.Errorf("set UserComment: %w", err)
	}
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("embed exif: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".wildtag-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := sl.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func newRootIfdBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}
