package platform

// Channel indexes of the platform axes and EMG channels. Determined by the
// analog input channels on the DAQ, in ascending numeric order.
const (
	FX = iota
	FY
	FZ
	MX
	MY
	MZ
	EMG1 // Physical EMG #7, tibialis anterior
	EMG2 // Physical EMG #6, soleus
	Stim
)

// ChannelCount is the width of one acquired frame, stimulus column included.
const ChannelCount = 9

// ZOffset is the Z-offset of the force platform, in meters.
const ZOffset = -0.040934

// MinimumVerticalForce is the minimum vertical force, in Newtons, below which
// the center of pressure is undefined.
const MinimumVerticalForce = 10.0

// AMTI Gen5 amplifier ranges. These change with gain and excitation voltage.
const (
	FxMin = -192.73
	FxMax = 192.73
	FyMin = -193.55
	FyMax = 193.55
	FzMin = -1504.76
	FzMax = 1504.76
	MxMin = -155.80
	MxMax = 155.80
	MyMin = -154.96
	MyMax = 154.96
	MzMin = -37.77
	MzMax = 37.77
)

// Frame is a single sample across every acquired channel.
type Frame [ChannelCount]float64

// CenterOfPressure computes the CoP coordinates from forces and moments.
// The boolean is false when the vertical force is below MinimumVerticalForce,
// in which case the platform is effectively unloaded and the CoP undefined.
func CenterOfPressure(fx, fy, fz, mx, my float64) (copX, copY float64, ok bool) {
	if fz < MinimumVerticalForce && fz > -MinimumVerticalForce {
		return 0, 0, false
	}
	copX = -1 * ((my + (ZOffset * fx)) / fz)
	copY = (mx - (ZOffset * fy)) / fz
	return copX, copY, true
}

// MediolateralForce extracts the force along the x axis from a recording.
func MediolateralForce(rows []Frame) []float64 {
	force := make([]float64, len(rows))
	for i, row := range rows {
		force[i] = row[FX]
	}
	return force
}

// ForceDelta corrects a force series for quiet stance by subtracting the mean
// of the first quietStanceLen samples. When quietStanceLen exceeds the series
// length the whole series is used as the quiet stance window.
func ForceDelta(force []float64, quietStanceLen int) []float64 {
	if len(force) == 0 {
		return nil
	}
	if quietStanceLen > len(force) || quietStanceLen <= 0 {
		quietStanceLen = len(force)
	}
	var sum float64
	for _, f := range force[:quietStanceLen] {
		sum += f
	}
	mean := sum / float64(quietStanceLen)

	delta := make([]float64, len(force))
	for i, f := range force {
		delta[i] = f - mean
	}
	return delta
}
