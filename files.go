package wildtag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Layout is the working directory structure next to the input images.
type Layout struct {
	Backup    string
	Processed string
	Rejected  string
	Logs      string
}

// NewLayout returns the standard layout under base without touching disk.
func NewLayout(base string) Layout {
	return Layout{
		Backup:    filepath.Join(base, "backup"),
		Processed: filepath.Join(base, "processed"),
		Rejected:  filepath.Join(base, "rejected"),
		Logs:      filepath.Join(base, "logs"),
	}
}

// PrepareLayout creates the standard layout under base.
func PrepareLayout(base string) (Layout, error) {
	l := NewLayout(base)
	for _, dir := range []string{l.Backup, l.Processed, l.Rejected, l.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return l, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return l, nil
}

// IsSupportedImage reports whether name has an extension in exts
// (case-insensitive).
func IsSupportedImage(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// ListImages returns the regular files directly inside dir whose extension is
// in exts, sorted by name. Subdirectories are not descended into.
func ListImages(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsSupportedImage(e.Name(), exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Backup copies src into dir, preserving permissions and modification time.
// It returns the path of the copy.
func Backup(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
