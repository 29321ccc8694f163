package fetcher

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet to read.
type XLSXOptions struct {
	SheetName  string // takes precedence over SheetIndex
	SheetIndex int
}

// StreamXLSX sends the rows of one worksheet, the header included, on the
// row channel. Cells are formatted as displayed and trimmed. Both channels
// are closed when the sheet is exhausted.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) (<-chan []string, <-chan error) {
	rows := make(chan []string, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(rows)
		defer close(errs)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errs <- eris.Wrapf(err, "xlsx: open %s", path)
			return
		}

		sheet, err := selectSheet(f, opts)
		if err != nil {
			errs <- err
			return
		}

		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			select {
			case rows <- cellStrings(row):
			case <-ctx.Done():
				errs <- eris.Wrap(ctx.Err(), "xlsx: cancelled")
				return
			}
		}
	}()

	return rows, errs
}

func selectSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func cellStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = strings.TrimSpace(c.String())
	}
	return out
}
