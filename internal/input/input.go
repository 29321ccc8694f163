// Package input reads parcel tables from dBase, shapefile, CSV and XLSX
// files, local or remote, into model.InputRecord values.
package input

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/urbanhydro/abimo/internal/model"
)

// Source yields input records in table order. Next returns io.EOF after the
// last record.
type Source interface {
	Next(ctx context.Context) (model.InputRecord, error)
	Close() error
}

// RequiredFields are the columns every input table must provide.
var RequiredFields = []string{
	"CODE", "NUTZUNG", "TYP", "BEZIRK",
	"FLUR", "FELD_30", "FELD_150",
	"REGENJA", "REGENSO",
	"PROBAU", "PROVGU", "VGSTRASSE",
	"BELAG1", "BELAG2", "BELAG3", "BELAG4",
	"STR_BELAG1", "STR_BELAG2", "STR_BELAG3", "STR_BELAG4",
	"KAN_BEB", "KAN_VGU", "KAN_STR",
	"FLGES", "STR_FLGES",
}

// MissingFieldsError lists required columns absent from a table header.
type MissingFieldsError struct {
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return "input: missing required fields: " + strings.Join(e.Missing, ", ")
}

// ValidateHeader checks that header contains every required field. Names
// are compared case-insensitively after trimming.
func ValidateHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.ToUpper(strings.TrimSpace(h))] = true
	}

	var missing []string
	for _, f := range RequiredFields {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Missing: missing}
	}
	return nil
}

// mapper converts table rows into records by column position.
type mapper struct {
	pos map[string]int
}

func newMapper(header []string) (*mapper, error) {
	if err := ValidateHeader(header); err != nil {
		return nil, err
	}
	m := &mapper{pos: make(map[string]int, len(header))}
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(h))
		if _, dup := m.pos[name]; !dup {
			m.pos[name] = i
		}
	}
	return m, nil
}

func (m *mapper) str(row []string, name string) string {
	i := m.pos[name]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Malformed or missing numbers read as 0.
func (m *mapper) intAt(row []string, name string) int {
	v, err := strconv.Atoi(m.str(row, name))
	if err != nil {
		return 0
	}
	return v
}

func (m *mapper) floatAt(row []string, name string) float32 {
	v, err := strconv.ParseFloat(m.str(row, name), 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

func (m *mapper) record(row []string) model.InputRecord {
	return model.InputRecord{
		Code:                m.str(row, "CODE"),
		Usage:               m.intAt(row, "NUTZUNG"),
		Type:                m.intAt(row, "TYP"),
		District:            m.intAt(row, "BEZIRK"),
		DepthToWaterTable:   m.floatAt(row, "FLUR"),
		FieldCapacity30:     m.intAt(row, "FELD_30"),
		FieldCapacity150:    m.intAt(row, "FELD_150"),
		PrecipitationYear:   m.intAt(row, "REGENJA"),
		PrecipitationSummer: m.intAt(row, "REGENSO"),
		RoofSealed:          m.floatAt(row, "PROBAU"),
		OtherSealed:         m.floatAt(row, "PROVGU"),
		RoadSealed:          m.floatAt(row, "VGSTRASSE"),
		Pavement: [4]float32{
			m.floatAt(row, "BELAG1"),
			m.floatAt(row, "BELAG2"),
			m.floatAt(row, "BELAG3"),
			m.floatAt(row, "BELAG4"),
		},
		RoadPavement: [4]float32{
			m.floatAt(row, "STR_BELAG1"),
			m.floatAt(row, "STR_BELAG2"),
			m.floatAt(row, "STR_BELAG3"),
			m.floatAt(row, "STR_BELAG4"),
		},
		RoofSewer:  m.floatAt(row, "KAN_BEB"),
		OtherSewer: m.floatAt(row, "KAN_VGU"),
		RoadSewer:  m.floatAt(row, "KAN_STR"),
		MainArea:   m.floatAt(row, "FLGES"),
		RoadArea:   m.floatAt(row, "STR_FLGES"),
	}
}

// Row renders r in the column order of RequiredFields, the inverse of the
// mapping applied when reading.
func Row(r model.InputRecord) []string {
	i := strconv.Itoa
	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
	return []string{
		r.Code, i(r.Usage), i(r.Type), i(r.District),
		f(r.DepthToWaterTable), i(r.FieldCapacity30), i(r.FieldCapacity150),
		i(r.PrecipitationYear), i(r.PrecipitationSummer),
		f(r.RoofSealed), f(r.OtherSealed), f(r.RoadSealed),
		f(r.Pavement[0]), f(r.Pavement[1]), f(r.Pavement[2]), f(r.Pavement[3]),
		f(r.RoadPavement[0]), f(r.RoadPavement[1]), f(r.RoadPavement[2]), f(r.RoadPavement[3]),
		f(r.RoofSewer), f(r.OtherSewer), f(r.RoadSewer),
		f(r.MainArea), f(r.RoadArea),
	}
}

// errHeader is returned by stream sources when the table has no header row.
var errHeader = eris.New("input: table is empty")
