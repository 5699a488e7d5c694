package enrich

import (
	"fmt"
	"strings"
)

// NormalizedMatrix is the assembled signal matrix plus the metadata the
// rendering layer needs. Rows follow the target collection order; columns
// are partitioned into three contiguous blocks (upstream, target body,
// downstream), any of which may be empty. The matrix is created once by
// NormalizeToMatrix; subsetting and row binding return new values and
// re-slice the three index ranges.
type NormalizedMatrix struct {
	Values   [][]float64
	RowNames []string
	ColNames []string

	// 0-based column indices of the three blocks, in column order.
	UpstreamIndex   []int
	TargetIndex     []int
	DownstreamIndex []int

	// Extend is the upstream/downstream extension in base pairs after
	// rounding to a multiple of the window width.
	Extend [2]int
	// Smoothed reports whether row smoothing ran.
	Smoothed bool
	// SinglePoint reports whether all targets were single points, in
	// which case the matrix has no target block.
	SinglePoint bool
	// EmptyValue is the fill used for windows with no overlapping signal.
	EmptyValue float64
	// FailedRows holds the 1-based indices of rows whose smoothing
	// failed; those rows carry their unsmoothed values.
	FailedRows []int
}

func (m *NormalizedMatrix) NRows() int { return len(m.Values) }

func (m *NormalizedMatrix) NCols() int { return len(m.ColNames) }

// SubsetRows returns a new matrix holding the given rows, in the given
// order. Row names and failed-row indices are re-mapped; the column
// metadata is unchanged.
func (m *NormalizedMatrix) SubsetRows(indices []int) *NormalizedMatrix {
	out := m.clone(false)
	out.Values = make([][]float64, len(indices))
	out.RowNames = make([]string, len(indices))
	failed := make(map[int]bool, len(m.FailedRows))
	for _, r := range m.FailedRows {
		failed[r] = true
	}
	out.FailedRows = nil
	for i, j := range indices {
		row := make([]float64, len(m.Values[j]))
		copy(row, m.Values[j])
		out.Values[i] = row
		out.RowNames[i] = m.RowNames[j]
		if failed[j+1] {
			out.FailedRows = append(out.FailedRows, i+1)
		}
	}
	return out
}

// SubsetColumns returns a new matrix holding the given columns, in the
// given order. Each of the three index ranges is re-sliced to the
// surviving columns' new positions.
func (m *NormalizedMatrix) SubsetColumns(indices []int) *NormalizedMatrix {
	out := m.clone(true)
	out.Values = make([][]float64, len(m.Values))
	for i, row := range m.Values {
		nr := make([]float64, len(indices))
		for k, j := range indices {
			nr[k] = row[j]
		}
		out.Values[i] = nr
	}
	out.ColNames = make([]string, len(indices))
	for k, j := range indices {
		out.ColNames[k] = m.ColNames[j]
	}
	segment := make(map[int]int, m.NCols())
	for _, j := range m.UpstreamIndex {
		segment[j] = 1
	}
	for _, j := range m.TargetIndex {
		segment[j] = 2
	}
	for _, j := range m.DownstreamIndex {
		segment[j] = 3
	}
	out.UpstreamIndex, out.TargetIndex, out.DownstreamIndex = nil, nil, nil
	for k, j := range indices {
		switch segment[j] {
		case 1:
			out.UpstreamIndex = append(out.UpstreamIndex, k)
		case 2:
			out.TargetIndex = append(out.TargetIndex, k)
		case 3:
			out.DownstreamIndex = append(out.DownstreamIndex, k)
		}
	}
	return out
}

// Append row-binds two matrices with identical column layouts.
func (m *NormalizedMatrix) Append(other *NormalizedMatrix) (*NormalizedMatrix, error) {
	if m.NCols() != other.NCols() ||
		!equalInts(m.UpstreamIndex, other.UpstreamIndex) ||
		!equalInts(m.TargetIndex, other.TargetIndex) ||
		!equalInts(m.DownstreamIndex, other.DownstreamIndex) ||
		m.Extend != other.Extend ||
		m.SinglePoint != other.SinglePoint {
		return nil, fmt.Errorf("row bind: column layouts differ: %w", ErrShapeMismatch)
	}
	out := m.clone(true)
	out.Smoothed = m.Smoothed || other.Smoothed
	out.Values = make([][]float64, 0, m.NRows()+other.NRows())
	out.RowNames = make([]string, 0, m.NRows()+other.NRows())
	for _, src := range []*NormalizedMatrix{m, other} {
		for _, row := range src.Values {
			r := make([]float64, len(row))
			copy(r, row)
			out.Values = append(out.Values, r)
		}
		out.RowNames = append(out.RowNames, src.RowNames...)
	}
	out.FailedRows = append([]int(nil), m.FailedRows...)
	for _, r := range other.FailedRows {
		out.FailedRows = append(out.FailedRows, r+m.NRows())
	}
	return out, nil
}

// clone copies metadata; values and names are set up by the caller.
// withRows also carries over row names and failed rows.
func (m *NormalizedMatrix) clone(withRows bool) *NormalizedMatrix {
	out := *m
	out.UpstreamIndex = append([]int(nil), m.UpstreamIndex...)
	out.TargetIndex = append([]int(nil), m.TargetIndex...)
	out.DownstreamIndex = append([]int(nil), m.DownstreamIndex...)
	out.ColNames = append([]string(nil), m.ColNames...)
	if withRows {
		out.RowNames = append([]string(nil), m.RowNames...)
		out.FailedRows = append([]int(nil), m.FailedRows...)
	}
	return &out
}

func (m *NormalizedMatrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "normalized matrix: %d regions x %d windows\n", m.NRows(), m.NCols())
	fmt.Fprintf(&b, "  upstream:   %d windows (%d bp)\n", len(m.UpstreamIndex), m.Extend[0])
	fmt.Fprintf(&b, "  target:     %d windows\n", len(m.TargetIndex))
	fmt.Fprintf(&b, "  downstream: %d windows (%d bp)\n", len(m.DownstreamIndex), m.Extend[1])
	if m.SinglePoint {
		b.WriteString("  targets are single points\n")
	}
	fmt.Fprintf(&b, "  smoothed: %v, empty value: %g\n", m.Smoothed, m.EmptyValue)
	if len(m.FailedRows) > 0 {
		fmt.Fprintf(&b, "  smoothing failed on %d rows\n", len(m.FailedRows))
	}
	return b.String()
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
