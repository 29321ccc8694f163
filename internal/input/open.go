package input

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/fetcher"
)

// Table formats.
const (
	FormatDBase     = "dbf"
	FormatShapefile = "shp"
	FormatCSV       = "csv"
	FormatXLSX      = "xlsx"
)

// Options configures Open.
type Options struct {
	// Format overrides detection from the file extension.
	Format string

	// Sheet names the XLSX worksheet; empty reads the first.
	Sheet string

	// Delimiter of CSV files; 0 means ','.
	Delimiter rune

	// Latin1 decodes CSV files as ISO-8859-1.
	Latin1 bool

	// SRID tags shapefile geometries.
	SRID int

	// Fetch configures downloads of remote sources.
	Fetch fetcher.Options
}

// GeometrySource is implemented by sources that carry parcel geometries.
type GeometrySource interface {
	Geometry(code string) ([]byte, bool)
}

// Open opens src, a local path or an http(s)/ftp URL, as a record source.
// ZIP archives are unpacked and the first shapefile, dBase, CSV or XLSX
// table inside is read. Temporary files are removed by Close.
func Open(ctx context.Context, src string, opts Options) (Source, error) {
	var tmp string
	cleanup := func() {
		if tmp != "" {
			_ = os.RemoveAll(tmp)
		}
	}

	path := src
	if fetcher.IsRemote(src) || isZIP(src) {
		var err error
		tmp, err = os.MkdirTemp("", "abimo-input-")
		if err != nil {
			return nil, eris.Wrap(err, "input: create temp dir")
		}
	}

	if fetcher.IsRemote(src) {
		p, err := fetcher.Fetch(ctx, src, tmp, opts.Fetch)
		if err != nil {
			cleanup()
			return nil, err
		}
		path = p
	}

	if isZIP(path) {
		files, err := fetcher.ExtractZIP(path, tmp)
		if err != nil {
			cleanup()
			return nil, err
		}
		p, ok := fetcher.FindByExt(files, ".shp", ".dbf", ".csv", ".xlsx")
		if !ok {
			cleanup()
			return nil, eris.Errorf("input: no table found in %s", src)
		}
		path = p
	}

	s, err := openFile(ctx, path, opts)
	if err != nil {
		cleanup()
		return nil, err
	}

	zap.L().Debug("opened input", zap.String("source", src), zap.String("path", path))
	if tmp == "" {
		return s, nil
	}
	return &tempSource{Source: s, dir: tmp}, nil
}

// DetectFormat returns the table format for the extension of path.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbf":
		return FormatDBase, nil
	case ".shp":
		return FormatShapefile, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("input: unknown table format of %s", path)
}

func openFile(ctx context.Context, path string, opts Options) (Source, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	switch format {
	case FormatDBase:
		return OpenTable(path)
	case FormatShapefile:
		return OpenShapefile(path, opts.SRID)
	case FormatCSV:
		return OpenCSV(ctx, path, opts.Delimiter, opts.Latin1)
	case FormatXLSX:
		return OpenXLSX(ctx, path, opts.Sheet)
	}
	return nil, eris.Errorf("input: unsupported format %q", format)
}

func isZIP(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// tempSource removes the download and extraction directory on Close.
type tempSource struct {
	Source
	dir string
}

func (s *tempSource) Close() error {
	err := s.Source.Close()
	if rmErr := os.RemoveAll(s.dir); err == nil {
		err = rmErr
	}
	return err
}

func (s *tempSource) Geometry(code string) ([]byte, bool) {
	if g, ok := s.Source.(GeometrySource); ok {
		return g.Geometry(code)
	}
	return nil, false
}
