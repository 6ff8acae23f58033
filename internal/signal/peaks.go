package signal

// Peak is a local maximum that survived the height and prominence filters.
type Peak struct {
	Index      int
	Height     float64
	Prominence float64
}

// FindPeaks locates local maxima of x with at least the given height and
// prominence. A plateau counts as one peak at its midpoint. Prominence is the
// vertical distance between a peak and its lowest contour line: the higher of
// the two interval minima taken between the peak and the nearest sample that
// exceeds it on either side (or the series edge).
func FindPeaks(x []float64, height, prominence float64) []Peak {
	maxima := localMaxima(x)

	peaks := make([]Peak, 0, len(maxima))
	for _, idx := range maxima {
		if x[idx] < height {
			continue
		}
		prom := peakProminence(x, idx)
		if prom < prominence {
			continue
		}
		peaks = append(peaks, Peak{Index: idx, Height: x[idx], Prominence: prom})
	}
	return peaks
}

// FindValleys locates peaks of the negated series. The reported Height is the
// magnitude of the excursion below zero.
func FindValleys(x []float64, height, prominence float64) []Peak {
	neg := make([]float64, len(x))
	for i, v := range x {
		neg[i] = -v
	}
	return FindPeaks(neg, height, prominence)
}

func localMaxima(x []float64) []int {
	var maxima []int
	i := 1
	for i < len(x)-1 {
		if x[i-1] >= x[i] {
			i++
			continue
		}
		// Ascending edge found, scan across any plateau.
		j := i
		for j < len(x)-1 && x[j+1] == x[j] {
			j++
		}
		if j < len(x)-1 && x[j+1] < x[j] {
			maxima = append(maxima, (i+j)/2)
		}
		i = j + 1
	}
	return maxima
}

func peakProminence(x []float64, peak int) float64 {
	// Left interval: walk until a sample higher than the peak or the edge.
	leftMin := x[peak]
	for i := peak - 1; i >= 0; i-- {
		if x[i] > x[peak] {
			break
		}
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}

	rightMin := x[peak]
	for i := peak + 1; i < len(x); i++ {
		if x[i] > x[peak] {
			break
		}
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return x[peak] - base
}
