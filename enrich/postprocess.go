package enrich

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// postProcess finalizes the assembled matrix in place: optional per-row
// smoothing, quantile trimming, and clamping back to the value range
// observed before smoothing, so smoother overshoot never leaves the
// original data range. It returns the 1-based indices of rows whose
// smoothing failed; those rows keep their unsmoothed values. Smoothing
// failures are reported, never retried and never fatal.
func postProcess(values [][]float64, smooth bool, fn SmoothFunc, trim [2]float64) ([]int, error) {
	if trim[0] < 0 || trim[1] < 0 || trim[0]+trim[1] >= 1 {
		return nil, fmt.Errorf("trim fractions (%g, %g) out of range: %w", trim[0], trim[1], ErrConfig)
	}

	// value range before smoothing, used for the final clamp
	minV, maxV := finiteRange(values)

	var failed []int
	if smooth {
		if fn == nil {
			return nil, fmt.Errorf("smoothing requested without a smoother: %w", ErrConfig)
		}
		for i, row := range values {
			in := make([]float64, len(row))
			copy(in, row)
			out, err := fn(in)
			if err != nil || len(out) != len(row) {
				failed = append(failed, i+1)
				continue
			}
			copy(row, out)
		}
		if len(failed) > 0 {
			logrus.Warnf("smoothing failed on %d of %d rows", len(failed), len(values))
		}
	}

	xs := collectFinite(values)
	if len(xs) > 0 {
		sort.Float64s(xs)
		q1 := stat.Quantile(trim[0], stat.Empirical, xs, nil)
		q2 := stat.Quantile(1-trim[1], stat.Empirical, xs, nil)
		clampValues(values, q1, q2)
		clampValues(values, minV, maxV)
	}
	return failed, nil
}

func finiteRange(values [][]float64) (float64, float64) {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, row := range values {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	return minV, maxV
}

func collectFinite(values [][]float64) []float64 {
	var xs []float64
	for _, row := range values {
		for _, v := range row {
			if !math.IsNaN(v) {
				xs = append(xs, v)
			}
		}
	}
	return xs
}

func clampValues(values [][]float64, lo, hi float64) {
	for _, row := range values {
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if v < lo {
				row[j] = lo
			} else if v > hi {
				row[j] = hi
			}
		}
	}
}
