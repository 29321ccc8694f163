package input

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/urbanhydro/abimo/internal/dbase"
	"github.com/urbanhydro/abimo/internal/fetcher"
	"github.com/urbanhydro/abimo/internal/model"
)

// TableSource reads a dBase table. The table is loaded completely on open.
type TableSource struct {
	table *dbase.Table
	m     *mapper
	pos   int
}

// OpenTable opens the dBase file at path.
func OpenTable(path string) (*TableSource, error) {
	t, err := dbase.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewTableSource(t)
}

// NewTableSource reads records from an already parsed table.
func NewTableSource(t *dbase.Table) (*TableSource, error) {
	m, err := newMapper(t.FieldNames())
	if err != nil {
		return nil, err
	}
	return &TableSource{table: t, m: m}, nil
}

// Len returns the number of records in the table.
func (s *TableSource) Len() int { return len(s.table.Records) }

func (s *TableSource) Next(_ context.Context) (model.InputRecord, error) {
	if s.pos >= len(s.table.Records) {
		return model.InputRecord{}, io.EOF
	}
	row := s.table.Records[s.pos]
	s.pos++
	return s.m.record(row), nil
}

func (s *TableSource) Close() error { return nil }

// ShapefileSource reads the attribute table of a shapefile and keeps the
// geometry of every record as EWKB, keyed by CODE.
type ShapefileSource struct {
	r     *shp.Reader
	m     *mapper
	srid  int
	geoms map[string][]byte
}

// OpenShapefile opens the .shp file at path together with its .dbf.
// Geometries are tagged with srid.
func OpenShapefile(path string, srid int) (*ShapefileSource, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open shapefile %s", path)
	}

	fields := r.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = strings.TrimRight(f.String(), "\x00")
	}
	m, err := newMapper(header)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &ShapefileSource{r: r, m: m, srid: srid, geoms: map[string][]byte{}}, nil
}

func (s *ShapefileSource) Next(_ context.Context) (model.InputRecord, error) {
	if !s.r.Next() {
		if err := s.r.Err(); err != nil {
			return model.InputRecord{}, eris.Wrap(err, "input: read shapefile")
		}
		return model.InputRecord{}, io.EOF
	}

	_, shape := s.r.Shape()
	row := make([]string, len(s.r.Fields()))
	for i := range row {
		row[i] = strings.TrimRight(s.r.Attribute(i), "\x00")
	}
	rec := s.m.record(row)

	wkb, err := EncodeGeometry(shape, s.srid)
	if err != nil {
		return model.InputRecord{}, err
	}
	if wkb != nil {
		s.geoms[rec.Code] = wkb
	}
	return rec, nil
}

// Geometry returns the EWKB geometry of the record with the given code.
func (s *ShapefileSource) Geometry(code string) ([]byte, bool) {
	g, ok := s.geoms[code]
	return g, ok
}

func (s *ShapefileSource) Close() error { return s.r.Close() }

// StreamSource reads rows produced by the fetcher's CSV or XLSX streams.
// The first row is the header.
type StreamSource struct {
	rows   <-chan []string
	errs   <-chan error
	cancel context.CancelFunc
	file   io.Closer
	m      *mapper
}

func newStreamSource(rows <-chan []string, errs <-chan error, cancel context.CancelFunc, file io.Closer) (*StreamSource, error) {
	s := &StreamSource{rows: rows, errs: errs, cancel: cancel, file: file}

	header, ok := <-rows
	if !ok {
		err := <-errs
		_ = s.Close()
		if err != nil {
			return nil, err
		}
		return nil, errHeader
	}

	m, err := newMapper(header)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.m = m
	return s, nil
}

// OpenCSV streams the CSV file at path.
func OpenCSV(ctx context.Context, path string, delimiter rune, latin1 bool) (*StreamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}

	opts := fetcher.CSVOptions{Delimiter: delimiter, TrimSpace: true, LazyQuotes: true}
	if latin1 {
		opts.Encoding = charmap.ISO8859_1
	}

	ctx, cancel := context.WithCancel(ctx)
	rows, errs := fetcher.StreamCSV(ctx, f, opts)
	return newStreamSource(rows, errs, cancel, f)
}

// OpenXLSX streams a worksheet of the workbook at path. An empty sheet name
// selects the first sheet.
func OpenXLSX(ctx context.Context, path, sheet string) (*StreamSource, error) {
	ctx, cancel := context.WithCancel(ctx)
	rows, errs := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{SheetName: sheet})
	return newStreamSource(rows, errs, cancel, nil)
}

func (s *StreamSource) Next(ctx context.Context) (model.InputRecord, error) {
	select {
	case row, ok := <-s.rows:
		if !ok {
			if err := <-s.errs; err != nil {
				return model.InputRecord{}, eris.Wrap(err, "input: read table")
			}
			return model.InputRecord{}, io.EOF
		}
		return s.m.record(row), nil
	case <-ctx.Done():
		return model.InputRecord{}, ctx.Err()
	}
}

// Close stops the stream and releases the file.
func (s *StreamSource) Close() error {
	s.cancel()
	for range s.rows {
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
