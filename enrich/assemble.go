package enrich

import (
	"fmt"

	gn "github.com/pbenner/gonetics"
)

// newSubMatrix scatters per-window aggregate values into a dense
// rows x k block. Windows are grouped by their owner column; every owner
// must have produced the same window count (owners with zero windows get
// a row of empty fill). Rows owned by a reverse-strand region are flipped
// so that column 1 is always the position nearest the 5' anchor.
func newSubMatrix(windows gn.GRanges, values []float64, owners gn.GRanges, empty float64) ([][]float64, int, error) {
	nT := owners.Length()
	owner := windows.GetMetaInt("owner")
	pos := windows.GetMetaInt("pos")

	counts := make([]int, nT)
	for _, o := range owner {
		counts[o]++
	}
	k := 0
	for i := 0; i < nT; i++ {
		if counts[i] == 0 {
			continue
		}
		if k == 0 {
			k = counts[i]
		}
		if counts[i] != k {
			return nil, 0, fmt.Errorf("target %d produced %d windows, want %d: %w",
				i+1, counts[i], k, ErrShapeMismatch)
		}
	}

	rows := make([][]float64, nT)
	for i := range rows {
		row := make([]float64, k)
		for j := range row {
			row[j] = empty
		}
		rows[i] = row
	}
	for i := range owner {
		rows[owner[i]][pos[i]] = values[i]
	}
	for i := 0; i < nT; i++ {
		if owners.Strand[i] == '-' {
			reverseFloats(rows[i])
		}
	}
	return rows, k, nil
}

// bindColumns concatenates the upstream, target and downstream blocks in
// column order and returns the 0-based column index range of each block.
// Nil blocks contribute zero columns and an empty index range.
func bindColumns(nrows int, up, target, down [][]float64) ([][]float64, []int, []int, []int) {
	width := func(block [][]float64) int {
		if len(block) == 0 {
			return 0
		}
		return len(block[0])
	}
	ku, kt, kd := width(up), width(target), width(down)
	values := make([][]float64, nrows)
	for i := 0; i < nrows; i++ {
		row := make([]float64, 0, ku+kt+kd)
		if ku > 0 {
			row = append(row, up[i]...)
		}
		if kt > 0 {
			row = append(row, target[i]...)
		}
		if kd > 0 {
			row = append(row, down[i]...)
		}
		values[i] = row
	}
	return values, indexRange(0, ku), indexRange(ku, ku+kt), indexRange(ku+kt, ku+kt+kd)
}

func indexRange(from, to int) []int {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}

func reverseFloats(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
