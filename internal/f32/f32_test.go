package f32

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want float32
	}{
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{-2.5, -3},
		{2.4999, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
}

func TestMinMax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(1), Min(1, 2))
	assert.Equal(t, float32(2), Max(1, 2))
	assert.Equal(t, float32(2), Min(float32(math.NaN()), 2))
	assert.Equal(t, float32(2), Max(float32(math.NaN()), 2))
}

func TestExpLog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(1), Exp(0))
	assert.Equal(t, float32(0), Log(1))
	assert.InDelta(t, 0.25, Pow(0.5, 2), 1e-7)
	assert.Equal(t, float32(3), Sqrt(9))
	assert.Equal(t, float32(2), Abs(-2))
}
