package dbase

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// Table is a fully read dBase table. Values are kept as trimmed strings.
type Table struct {
	Date    time.Time
	Fields  []Field
	Records [][]string

	index map[string]int
}

// ReadFile reads the table at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbase: open %s", path)
	}
	defer f.Close() //nolint

	t, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "dbase: read %s", path)
	}
	return t, nil
}

// Read parses a dBase III table. Deleted records are skipped.
func Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dbase: read")
	}
	if len(data) < headerSize+1 {
		return nil, eris.New("dbase: file too short")
	}

	numRecords := int(binary.LittleEndian.Uint32(data[4:8]))
	headerLength := int(binary.LittleEndian.Uint16(data[8:10]))
	recordLength := int(binary.LittleEndian.Uint16(data[10:12]))
	if headerLength > len(data) || headerLength < headerSize+1 {
		return nil, eris.Errorf("dbase: invalid header length %d", headerLength)
	}

	t := &Table{
		Date:  time.Date(1900+int(data[1]), time.Month(data[2]), int(data[3]), 0, 0, 0, 0, time.UTC),
		index: map[string]int{},
	}

	dec := charmap.ISO8859_1.NewDecoder()
	width := 1
	for off := headerSize; off+descriptorSize <= headerLength && data[off] != headerTerminator; off += descriptorSize {
		d := data[off : off+descriptorSize]
		name := string(bytes.TrimRight(d[:10], "\x00 "))
		f := Field{
			Name:     name,
			Type:     d[11],
			Length:   int(d[16]),
			Decimals: int(d[17]),
		}
		t.index[strings.ToUpper(name)] = len(t.Fields)
		t.Fields = append(t.Fields, f)
		width += f.Length
	}
	if len(t.Fields) == 0 {
		return nil, eris.New("dbase: no field descriptors")
	}
	if recordLength < width {
		return nil, eris.Errorf("dbase: record length %d shorter than fields (%d)", recordLength, width)
	}

	off := headerLength
	for i := 0; i < numRecords; i++ {
		if off+recordLength > len(data) {
			return nil, eris.Errorf("dbase: record %d truncated", i)
		}
		rec := data[off : off+recordLength]
		off += recordLength
		if rec[0] == recordDeleted {
			continue
		}

		row := make([]string, len(t.Fields))
		pos := 1
		for j, f := range t.Fields {
			raw := rec[pos : pos+f.Length]
			pos += f.Length
			s, err := dec.Bytes(raw)
			if err != nil {
				return nil, eris.Wrapf(err, "dbase: decode record %d field %s", i, f.Name)
			}
			row[j] = strings.Trim(string(s), " \x00")
		}
		t.Records = append(t.Records, row)
	}

	return t, nil
}

// FieldIndex returns the column of name (case-insensitive) or -1.
func (t *Table) FieldIndex(name string) int {
	if i, ok := t.index[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// Value returns the value of a named field in row.
func (t *Table) Value(row int, name string) (string, bool) {
	i := t.FieldIndex(name)
	if i < 0 || row < 0 || row >= len(t.Records) {
		return "", false
	}
	return t.Records[row][i], true
}

// FieldNames returns the column names in file order.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}
