// Package dbase reads and writes the dBase III tables used for parcel input
// and balance results.
package dbase

import (
	"math"
	"strconv"

	"github.com/urbanhydro/abimo/internal/model"
)

// Field types.
const (
	TypeCharacter byte = 'C'
	TypeNumeric   byte = 'N'
)

const (
	headerSize     = 32
	descriptorSize = 32
	nameSize       = 11

	headerTerminator byte = 0x0D
	fileTerminator   byte = 0x1A
	recordActive     byte = 0x20
	recordDeleted    byte = '*'
	versionByte      byte = 0x03
	languageDriver   byte = 0x57
)

// Field describes one column of a table.
type Field struct {
	Name     string `json:"name"`
	Type     byte   `json:"type"`
	Length   int    `json:"length"`
	Decimals int    `json:"decimals"`
}

// RoundValue scales v by 10^decimals, rounds to an integer and scales back,
// each step narrowed to float32.
func RoundValue(v float32, decimals int, mode model.RoundingMode) float32 {
	v = float32(float64(v) * math.Pow10(decimals))
	if mode == model.RoundHalfEven {
		v = float32(math.RoundToEven(float64(v)))
	} else {
		v = float32(math.Round(float64(v)))
	}
	return float32(float64(v) * math.Pow10(-decimals))
}

// FormatValue rounds v and formats it with a fixed number of decimals.
func FormatValue(v float32, decimals int, mode model.RoundingMode) string {
	return strconv.FormatFloat(float64(RoundValue(v, decimals, mode)), 'f', decimals, 64)
}
