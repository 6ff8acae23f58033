package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name       string
		series     []float64
		height     float64
		prominence float64
		want       []int
	}{
		{
			name:       "single peak above filters",
			series:     []float64{0, 2, 15, 3, 0},
			height:     10,
			prominence: 10,
			want:       []int{2},
		},
		{
			name:       "peak below height is rejected",
			series:     []float64{0, 2, 8, 3, 0},
			height:     10,
			prominence: 10,
			want:       nil,
		},
		{
			name:       "low prominence shoulder is rejected",
			series:     []float64{0, 20, 14, 16, 2, 0},
			height:     10,
			prominence: 10,
			want:       []int{1},
		},
		{
			name:       "two well separated peaks",
			series:     []float64{0, 14, 0, 0, 18, 0},
			height:     10,
			prominence: 10,
			want:       []int{1, 4},
		},
		{
			name:       "plateau reports its midpoint",
			series:     []float64{0, 12, 12, 12, 0},
			height:     10,
			prominence: 10,
			want:       []int{2},
		},
		{
			name:       "edges are never peaks",
			series:     []float64{20, 0, 0, 20},
			height:     10,
			prominence: 10,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks := FindPeaks(tt.series, tt.height, tt.prominence)
			var got []int
			for _, p := range peaks {
				got = append(got, p.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindValleys(t *testing.T) {
	series := []float64{0, -2, -15, -3, 0}
	valleys := FindValleys(series, 10, 10)
	if assert.Len(t, valleys, 1) {
		assert.Equal(t, 2, valleys[0].Index)
		assert.InDelta(t, 15, valleys[0].Height, 1e-12)
	}
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.Zero(t, Mean(nil))
}

func TestDecimate(t *testing.T) {
	x := []float64{1, 1, 3, 3, 5, 5}
	assert.Equal(t, []float64{1, 3, 5}, Decimate(x, 2))

	// Trailing partial window averages what is left.
	assert.Equal(t, []float64{1.5, 3.5, 5}, Decimate([]float64{1, 2, 3, 4, 5}, 2))

	// Factor of one is a no-op.
	assert.Equal(t, x, Decimate(x, 1))
}
