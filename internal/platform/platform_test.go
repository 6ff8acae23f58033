package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCenterOfPressure(t *testing.T) {
	tests := []struct {
		name    string
		fx, fy  float64
		fz      float64
		mx, my  float64
		wantX   float64
		wantY   float64
		wantOk  bool
		epsilon float64
	}{
		{
			name:    "centered load has zero CoP",
			fz:      700,
			wantX:   0,
			wantY:   0,
			wantOk:  true,
			epsilon: 1e-12,
		},
		{
			name:    "moment about y shifts CoP along x",
			fz:      700,
			my:      70,
			wantX:   -0.1,
			wantY:   0,
			wantOk:  true,
			epsilon: 1e-12,
		},
		{
			name:    "moment about x shifts CoP along y",
			fz:      700,
			mx:      70,
			wantX:   0,
			wantY:   0.1,
			wantOk:  true,
			epsilon: 1e-12,
		},
		{
			name:    "shear force couples through z offset",
			fx:      100,
			fz:      500,
			wantX:   -1 * (ZOffset * 100) / 500,
			wantY:   0,
			wantOk:  true,
			epsilon: 1e-12,
		},
		{
			name:   "unloaded platform has no CoP",
			fz:     5,
			mx:     10,
			my:     10,
			wantOk: false,
		},
		{
			name:   "negative vertical force below threshold has no CoP",
			fz:     -5,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copX, copY, ok := CenterOfPressure(tt.fx, tt.fy, tt.fz, tt.mx, tt.my)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.InDelta(t, tt.wantX, copX, tt.epsilon)
				assert.InDelta(t, tt.wantY, copY, tt.epsilon)
			}
		})
	}
}

func TestMediolateralForce(t *testing.T) {
	rows := []Frame{
		{1.5, 2, 700, 0, 0, 0, 0.1, 0.2, 0},
		{-3.5, 2, 700, 0, 0, 0, 0.1, 0.2, 0},
	}
	assert.Equal(t, []float64{1.5, -3.5}, MediolateralForce(rows))
	assert.Empty(t, MediolateralForce(nil))
}

func TestForceDelta(t *testing.T) {
	// Quiet stance mean of the first 4 samples is 2.0.
	force := []float64{2, 2, 2, 2, 5, 8, -1}
	delta := ForceDelta(force, 4)
	assert.Equal(t, []float64{0, 0, 0, 0, 3, 6, -3}, delta)

	// Window longer than the series falls back to the whole series.
	short := ForceDelta([]float64{1, 3}, 10)
	assert.Equal(t, []float64{-1, 1}, short)

	assert.Nil(t, ForceDelta(nil, 100))
}
