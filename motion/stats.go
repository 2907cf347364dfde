package motion

import "gonum.org/v1/gonum/stat"

// HistogramQuantile returns the smallest bucket index i such that the
// cumulative population of buckets 0..i is at least p of the total
// population, treating hist as a weighted empirical distribution over
// bucket indices. It is shared by Estimate's per-block error histogram
// (uint16 buckets) and frame.MVFrame's luma histogram (uint32 buckets),
// spec.md §4.4's 75th/90th/10th percentile gates.
func HistogramQuantile[T ~uint16 | ~uint32](hist []T, p float64) uint8 {
	total := 0.0
	xs := make([]float64, len(hist))
	ws := make([]float64, len(hist))
	for i, n := range hist {
		xs[i] = float64(i)
		ws[i] = float64(n)
		total += float64(n)
	}
	if total == 0 {
		return 0
	}
	// stat.Quantile requires xs sorted ascending, which 0..255 already is.
	q := stat.Quantile(p, stat.Empirical, xs, ws)
	if q < 0 {
		q = 0
	}
	if q > 255 {
		q = 255
	}
	return uint8(q)
}
