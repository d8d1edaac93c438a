package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIPFile extracts one member of a ZIP archive by name and returns its path.
func ExtractZIPFile(zipPath, member, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.Name == member {
			return extractZIPEntry(f, destDir)
		}
	}
	return "", eris.Errorf("zip: file %q not found in archive", member)
}

// ExtractZIPTable extracts the only tabular member (.csv or .xlsx) of an
// archive. CMS bundles ship a data dictionary PDF next to the data file, so
// other members are ignored.
func ExtractZIPTable(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var tables []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".csv", ".xlsx":
			tables = append(tables, f)
		}
	}
	if len(tables) != 1 {
		return "", eris.Errorf("zip: expected exactly 1 csv or xlsx member, got %d", len(tables))
	}
	return extractZIPEntry(tables[0], destDir)
}

// extractZIPEntry writes a file entry under destDir and returns its path.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}
	if f.FileInfo().IsDir() {
		return "", eris.Errorf("zip: %q is a directory", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}
	return destPath, nil
}
