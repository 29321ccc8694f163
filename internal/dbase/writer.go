package dbase

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/urbanhydro/abimo/internal/model"
)

// Writer buffers balance results and writes them as one dBase table. The
// width of each column is the widest formatted value, so nothing is written
// before all records are known.
type Writer struct {
	fields []Field
	rows   [][]string
	mode   model.RoundingMode
	date   time.Time
	enc    *encoding.Encoder
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDate sets the last-update date stored in the header.
func WithDate(t time.Time) WriterOption {
	return func(w *Writer) { w.date = t }
}

// NewWriter returns a Writer for the output columns. decimals holds the
// decimal places per column name; missing names get none.
func NewWriter(decimals map[string]int, mode model.RoundingMode, opts ...WriterOption) *Writer {
	w := &Writer{
		mode: mode,
		date: time.Now(),
		enc:  encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()),
	}

	for _, name := range model.OutputFields {
		f := Field{Name: name, Type: TypeNumeric, Decimals: decimals[name]}
		if name == model.FieldCode {
			f.Type = TypeCharacter
			f.Decimals = 0
		}
		w.fields = append(w.fields, f)
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write appends one record.
func (w *Writer) Write(rec model.OutputRecord) error {
	code, err := w.enc.String(rec.Code)
	if err != nil {
		return eris.Wrapf(err, "dbase: encode code %q", rec.Code)
	}

	row := make([]string, len(w.fields))
	row[0] = code
	for i, v := range rec.Values() {
		row[i+1] = FormatValue(v, w.fields[i+1].Decimals, w.mode)
	}

	for i, s := range row {
		if len(s) > w.fields[i].Length {
			w.fields[i].Length = len(s)
		}
	}

	w.rows = append(w.rows, row)
	return nil
}

// Len returns the number of buffered records.
func (w *Writer) Len() int {
	return len(w.rows)
}

// Fields returns the column layout as it would be written now.
func (w *Writer) Fields() []Field {
	out := make([]Field, len(w.fields))
	copy(out, w.fields)
	return out
}

// WriteTo writes the complete table to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var buf bytes.Buffer

	recordLength := 1
	for _, f := range w.fields {
		if f.Length > 255 {
			return 0, eris.Errorf("dbase: field %s too wide (%d)", f.Name, f.Length)
		}
		recordLength += f.Length
	}
	headerLength := headerSize + descriptorSize*len(w.fields) + 1

	header := make([]byte, headerSize)
	header[0] = versionByte
	year := w.date.Year()
	yy := year % 100
	if year > 2000 {
		yy += 100
	}
	header[1] = byte(yy)
	header[2] = byte(w.date.Month())
	header[3] = byte(w.date.Day())
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(w.rows)))
	binary.LittleEndian.PutUint16(header[8:10], uint16(headerLength))
	binary.LittleEndian.PutUint16(header[10:12], uint16(recordLength))
	header[29] = languageDriver
	buf.Write(header)

	for _, f := range w.fields {
		d := make([]byte, descriptorSize)
		copy(d[:nameSize], f.Name)
		d[11] = f.Type
		d[16] = byte(f.Length)
		d[17] = byte(f.Decimals)
		buf.Write(d)
	}
	buf.WriteByte(headerTerminator)

	for _, row := range w.rows {
		buf.WriteByte(recordActive)
		for i, f := range w.fields {
			buf.WriteString(pad(row[i], f))
		}
	}
	buf.WriteByte(fileTerminator)

	return buf.WriteTo(out)
}

// Save writes the table to path, replacing an existing file.
func (w *Writer) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "write results: open %s", path)
	}

	bw := bufio.NewWriter(f)
	if _, err := w.WriteTo(bw); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write results: %s", path)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write results: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "write results: close %s", path)
}

// pad right-justifies a value to the field width with zeros. With decimals
// the minus sign stays in front of the padding; without, the whole string is
// padded, so -5 in a width of 4 becomes "00-5".
func pad(s string, f Field) string {
	if f.Type != TypeNumeric || f.Decimals == 0 {
		return leftPad(s, f.Length)
	}

	intPart, frac, _ := strings.Cut(s, ".")
	front := f.Length - 1 - f.Decimals

	var b strings.Builder
	if strings.HasPrefix(intPart, "-") {
		b.WriteByte('-')
		b.WriteString(leftPad(intPart[1:], front-1))
	} else {
		b.WriteString(leftPad(intPart, front))
	}

	b.WriteByte('.')
	b.WriteString(frac + strings.Repeat("0", max(0, f.Decimals-len(frac))))
	return b.String()
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
