package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 disables comments
	LazyQuotes bool
	TrimSpace  bool

	// Encoding decodes the input to UTF-8. Nil reads UTF-8.
	Encoding encoding.Encoding
}

// StreamCSV parses r in a goroutine and sends every row, the header
// included, on the row channel. A read error or cancellation is sent on the
// error channel. Both channels are closed when parsing ends.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rows := make(chan []string, 64)
	errs := make(chan error, 1)

	if opts.Encoding != nil {
		r = transform.NewReader(r, opts.Encoding.NewDecoder())
	}

	go func() {
		defer close(rows)
		defer close(errs)

		cr := csv.NewReader(r)
		if opts.Delimiter != 0 {
			cr.Comma = opts.Delimiter
		}
		cr.Comment = opts.Comment
		cr.LazyQuotes = opts.LazyQuotes
		cr.FieldsPerRecord = -1

		for line := 1; ; line++ {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errs <- eris.Wrapf(err, "csv: read row %d", line)
				return
			}

			if opts.TrimSpace {
				for i := range rec {
					rec[i] = strings.TrimSpace(rec[i])
				}
			}

			select {
			case rows <- rec:
			case <-ctx.Done():
				errs <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()

	return rows, errs
}
