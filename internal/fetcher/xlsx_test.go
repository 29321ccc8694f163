package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeXLSX(t *testing.T, sheets ...[][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for i, rows := range sheets {
		sheet, err := f.AddSheet("Sheet" + string(rune('1'+i)))
		require.NoError(t, err)
		for _, r := range rows {
			row := sheet.AddRow()
			for _, v := range r {
				row.AddCell().SetString(v)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "blocks.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestStreamXLSX(t *testing.T) {
	t.Parallel()

	path := writeXLSX(t,
		[][]string{{"CODE", "FLUR"}, {"1000", " 2.5 "}},
		[][]string{{"OTHER"}, {"x"}},
	)

	rows, errs := StreamXLSX(context.Background(), path, XLSXOptions{})
	got, err := drain(t, rows, errs)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"CODE", "FLUR"}, {"1000", "2.5"}}, got)

	rows, errs = StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Sheet2"})
	got, err = drain(t, rows, errs)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"OTHER"}, {"x"}}, got)
}

func TestStreamXLSX_Errors(t *testing.T) {
	t.Parallel()

	path := writeXLSX(t, [][]string{{"A"}})

	rows, errs := StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "missing"})
	_, err := drain(t, rows, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	rows, errs = StreamXLSX(context.Background(), path, XLSXOptions{SheetIndex: 3})
	_, err = drain(t, rows, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	rows, errs = StreamXLSX(context.Background(), filepath.Join(t.TempDir(), "none.xlsx"), XLSXOptions{})
	_, err = drain(t, rows, errs)
	require.Error(t, err)
}
