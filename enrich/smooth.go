package enrich

import (
	"errors"
	"fmt"
	"math"
)

// SmoothFunc smooths a single matrix row. Implementations must return a
// vector of the same length or an error; the input may contain NaN holes.
// Errors are collected per row and never abort the whole matrix.
type SmoothFunc func(row []float64) ([]float64, error)

// defaultSmoothRadius is used when smoothing is requested without an
// explicit smoother.
const defaultSmoothRadius = 2

// MovingAverage returns a NaN-aware running-mean smoother with the given
// window radius. A position whose window holds no finite value stays NaN;
// a row without any finite value cannot be smoothed and fails.
func MovingAverage(radius int) SmoothFunc {
	return func(row []float64) ([]float64, error) {
		if radius < 0 {
			return nil, fmt.Errorf("moving average: negative radius %d: %w", radius, ErrConfig)
		}
		finite := 0
		for _, v := range row {
			if !math.IsNaN(v) {
				finite++
			}
		}
		if finite == 0 {
			return nil, errors.New("moving average: row has no finite values")
		}
		out := make([]float64, len(row))
		for i := range row {
			lo := max(0, i-radius)
			hi := min(len(row)-1, i+radius)
			sum, n := 0.0, 0
			for j := lo; j <= hi; j++ {
				if math.IsNaN(row[j]) {
					continue
				}
				sum += row[j]
				n++
			}
			if n == 0 {
				out[i] = math.NaN()
			} else {
				out[i] = sum / float64(n)
			}
		}
		return out, nil
	}
}
