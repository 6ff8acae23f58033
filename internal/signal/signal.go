// Package signal holds the small amount of numeric post-processing the
// protocol needs: peak detection on force series, summary statistics and
// decimation for graph rendering.
package signal

import "gonum.org/v1/gonum/stat"

// Mean returns the arithmetic mean of x, 0 for an empty series.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Decimate downsamples x by the integer factor q after a moving-average
// pre-filter of width q, so graph rendering does not alias the raw series.
func Decimate(x []float64, q int) []float64 {
	if q <= 1 || len(x) == 0 {
		return x
	}
	out := make([]float64, 0, (len(x)+q-1)/q)
	for i := 0; i < len(x); i += q {
		end := i + q
		if end > len(x) {
			end = len(x)
		}
		var sum float64
		for _, v := range x[i:end] {
			sum += v
		}
		out = append(out, sum/float64(end-i))
	}
	return out
}
