package dbase

import (
	"bytes"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// Difference is one mismatching value between two tables.
type Difference struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// CompareValues compares the values of the fields both tables share, row by
// row, and returns at most maxDiffs differences. Extra rows in either table
// are reported as a difference on the field "#rows".
func CompareValues(want, got *Table, maxDiffs int) []Difference {
	var diffs []Difference
	add := func(d Difference) bool {
		diffs = append(diffs, d)
		return maxDiffs > 0 && len(diffs) >= maxDiffs
	}

	rows := min(len(want.Records), len(got.Records))
	for i := 0; i < rows; i++ {
		for _, f := range want.Fields {
			j := got.FieldIndex(f.Name)
			if j < 0 {
				continue
			}
			w := want.Records[i][want.FieldIndex(f.Name)]
			g := got.Records[i][j]
			if w != g && add(Difference{Row: i, Field: f.Name, Want: w, Got: g}) {
				return diffs
			}
		}
	}

	if len(want.Records) != len(got.Records) {
		add(Difference{
			Row:   rows,
			Field: "#rows",
			Want:  strconv.Itoa(len(want.Records)),
			Got:   strconv.Itoa(len(got.Records)),
		})
	}
	return diffs
}

// FilesIdentical reports whether two files have the same bytes. The header
// date (bytes 1 to 3) is ignored when skipDate is set.
func FilesIdentical(a, b string, skipDate bool) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, eris.Wrapf(err, "dbase: read %s", a)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, eris.Wrapf(err, "dbase: read %s", b)
	}
	if len(da) != len(db) {
		return false, nil
	}
	if skipDate && len(da) >= 4 {
		return da[0] == db[0] && bytes.Equal(da[4:], db[4:]), nil
	}
	return bytes.Equal(da, db), nil
}
