package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every file of the archive into destDir and returns the
// extracted paths in archive order.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var paths []string
	for _, f := range r.File {
		p, err := extractEntry(f, destDir)
		if err != nil {
			return paths, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// FindByExt returns the first path (in lexical order) with one of the given
// extensions, compared case-insensitively.
func FindByExt(paths []string, exts ...string) (string, bool) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, ext := range exts {
		for _, p := range sorted {
			if strings.EqualFold(filepath.Ext(p), ext) {
				return p, true
			}
		}
	}
	return "", false
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	dest := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return "", eris.Wrap(os.MkdirAll(dest, 0o755), "zip: create directory")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return "", eris.Wrapf(err, "zip: write %s", dest)
	}
	return dest, eris.Wrap(out.Close(), "zip: close file")
}
