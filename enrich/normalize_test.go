package enrich_test

import (
	"math"
	"testing"

	gn "github.com/pbenner/gonetics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sameet/EnrichedHeatmap/enrich"
)

func noSignal() gn.GRanges {
	return gn.NewGRanges(nil, nil, nil, nil)
}

// TestNormalizeToMatrix_ColumnLayout verifies the column-count invariant:
// ncol = upstream + target + downstream, identical across rows, with the
// target window count derived from the flank counts and the ratio.
func TestNormalizeToMatrix_ColumnLayout(t *testing.T) {
	targets := gn.NewGRanges(
		[]string{"chr1", "chr1"},
		[]int{1000, 3000},
		[]int{1100, 3100},
		[]byte{'+', '-'})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{50, 50}
	opt.WindowSize = 10
	opt.TargetRatio = 1.0 / 3

	m, err := enrich.NormalizeToMatrix(noSignal(), targets, opt)
	require.NoError(t, err)

	// 5 upstream + 5 downstream windows; k = round(10 * (1/3)/(2/3)) = 5
	assert.Equal(t, 2, m.NRows())
	assert.Equal(t, 15, m.NCols())
	assert.Len(t, m.UpstreamIndex, 5)
	assert.Len(t, m.TargetIndex, 5)
	assert.Len(t, m.DownstreamIndex, 5)
	assert.Equal(t, "u1", m.ColNames[0])
	assert.Equal(t, "t1", m.ColNames[5])
	assert.Equal(t, "d5", m.ColNames[14])
	assert.Equal(t, [2]int{50, 50}, m.Extend)
	assert.False(t, m.SinglePoint)
	for _, row := range m.Values {
		assert.Len(t, row, 15)
	}
}

// TestNormalizeToMatrix_StrandOrientation verifies that for a minus
// strand target the genomic left flank lands in the downstream block.
func TestNormalizeToMatrix_StrandOrientation(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{2000}, []int{2100}, []byte{'-'})
	signals := gn.NewGRanges([]string{"chr1"}, []int{1950}, []int{2000}, nil)
	signals.AddMeta("score", []float64{5})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{50, 50}
	opt.WindowSize = 10
	opt.IncludeTarget = false
	opt.Mode = enrich.MeanWeighted
	opt.ValueColumn = "score"

	m, err := enrich.NormalizeToMatrix(signals, targets, opt)
	require.NoError(t, err)

	require.Equal(t, 10, m.NCols())
	for _, j := range m.UpstreamIndex {
		assert.Equal(t, 0.0, m.Values[0][j], "upstream column %d", j)
	}
	for _, j := range m.DownstreamIndex {
		assert.Equal(t, 5.0, m.Values[0][j], "downstream column %d", j)
	}
}

// TestNormalizeToMatrix_FlooredExtension verifies extensions not evenly
// divisible by the window width are rounded down with a warning.
func TestNormalizeToMatrix_FlooredExtension(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{1000}, []int{1100}, nil)

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{55, 55}
	opt.WindowSize = 10
	opt.IncludeTarget = false

	m, err := enrich.NormalizeToMatrix(noSignal(), targets, opt)
	require.NoError(t, err)
	assert.Equal(t, [2]int{50, 50}, m.Extend)
	assert.Equal(t, 10, m.NCols())
}

// TestNormalizeToMatrix_SinglePointTargets verifies the seamless
// combined-interval branch: one split around the anchor, columns
// partitioned by the extension ratio, no target block.
func TestNormalizeToMatrix_SinglePointTargets(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{500}, []int{501}, []byte{'+'})
	signals := gn.NewGRanges([]string{"chr1"}, []int{470}, []int{480}, nil)
	signals.AddMeta("score", []float64{3})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{30, 10}
	opt.WindowSize = 10
	opt.Mode = enrich.MeanWeighted
	opt.ValueColumn = "score"

	m, err := enrich.NormalizeToMatrix(signals, targets, opt)
	require.NoError(t, err)

	assert.True(t, m.SinglePoint)
	assert.Empty(t, m.TargetIndex)
	assert.Len(t, m.UpstreamIndex, 3)
	assert.Len(t, m.DownstreamIndex, 1)
	// combined interval [470,510): the signal fills the first window
	assert.Equal(t, 3.0, m.Values[0][0])
	assert.Equal(t, 0.0, m.Values[0][1])
}

// TestNormalizeToMatrix_RatioOneDropsFlanks verifies a target ratio of 1
// resets a nonzero extension and falls back to the fixed window count.
func TestNormalizeToMatrix_RatioOneDropsFlanks(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{0}, []int{100}, nil)

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{50, 50}
	opt.TargetRatio = 1
	opt.TargetWindows = 4

	m, err := enrich.NormalizeToMatrix(noSignal(), targets, opt)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 0}, m.Extend)
	assert.Equal(t, 4, m.NCols())
	assert.Len(t, m.TargetIndex, 4)
	assert.Empty(t, m.UpstreamIndex)
	assert.Empty(t, m.DownstreamIndex)
}

// TestNormalizeToMatrix_TargetBodyAggregation verifies count-based target
// splitting and aggregation with zero extension.
func TestNormalizeToMatrix_TargetBodyAggregation(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{0}, []int{10}, nil)
	signals := gn.NewGRanges([]string{"chr1"}, []int{0}, []int{5}, nil)
	signals.AddMeta("score", []float64{4})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{0, 0}
	opt.TargetRatio = 1
	opt.TargetWindows = 2
	opt.Mode = enrich.MeanWeighted
	opt.ValueColumn = "score"

	m, err := enrich.NormalizeToMatrix(signals, targets, opt)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 0}, m.Values[0])
}

// TestNormalizeToMatrix_SmoothingFailuresReported verifies a row without
// any signal fails the default smoother, is reported, and keeps the
// matrix shape; the empty fill switches to NaN under smoothing.
func TestNormalizeToMatrix_SmoothingFailuresReported(t *testing.T) {
	targets := gn.NewGRanges(
		[]string{"chr1", "chr1"},
		[]int{100, 1000},
		[]int{101, 1001},
		[]byte{'+', '+'})
	signals := gn.NewGRanges([]string{"chr1"}, []int{990}, []int{1010}, nil)
	signals.AddMeta("score", []float64{2})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{20, 20}
	opt.WindowSize = 10
	opt.Mode = enrich.MeanWeighted
	opt.ValueColumn = "score"
	opt.Smooth = true

	m, err := enrich.NormalizeToMatrix(signals, targets, opt)
	require.NoError(t, err)

	assert.True(t, m.Smoothed)
	assert.True(t, math.IsNaN(m.EmptyValue))
	assert.Equal(t, []int{1}, m.FailedRows)
	assert.Equal(t, 2, m.NRows())
	assert.Equal(t, 4, m.NCols())
	// the failed row keeps its (all-NaN) values
	for _, v := range m.Values[0] {
		assert.True(t, math.IsNaN(v))
	}
	// the smoothed row stays within the pre-smoothing range
	for _, v := range m.Values[1] {
		if !math.IsNaN(v) {
			assert.LessOrEqual(t, v, 2.0)
		}
	}
}

// TestNormalizeToMatrix_RowNames verifies named targets label the rows
// and unnamed ones fall back to their coordinates.
func TestNormalizeToMatrix_RowNames(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1", "chr2"}, []int{0, 0}, []int{100, 100}, nil)
	targets.AddMeta("names", []string{"geneA", ""})

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{0, 0}
	opt.TargetRatio = 1
	opt.TargetWindows = 2

	m, err := enrich.NormalizeToMatrix(noSignal(), targets, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"geneA", "chr2:0-100"}, m.RowNames)
}

// TestNormalizeToMatrix_ConfigurationErrors covers the fatal
// configurations: negative extension, fractional width with a fixed
// extension, missing target window count, single points without
// extension, and mapping against unnamed targets.
func TestNormalizeToMatrix_ConfigurationErrors(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1"}, []int{0}, []int{100}, nil)
	points := gn.NewGRanges([]string{"chr1"}, []int{50}, []int{51}, nil)

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{-10, 0}
	_, err := enrich.NormalizeToMatrix(noSignal(), targets, opt)
	assert.ErrorIs(t, err, enrich.ErrConfig)

	opt = enrich.DefaultOptions()
	opt.Extend = [2]int{50, 50}
	opt.WindowSize = 0.5
	_, err = enrich.NormalizeToMatrix(noSignal(), targets, opt)
	assert.ErrorIs(t, err, enrich.ErrConfig)

	opt = enrich.DefaultOptions()
	opt.Extend = [2]int{0, 0}
	opt.TargetRatio = 1
	opt.TargetWindows = 0
	_, err = enrich.NormalizeToMatrix(noSignal(), targets, opt)
	assert.ErrorIs(t, err, enrich.ErrConfig)

	opt = enrich.DefaultOptions()
	opt.Extend = [2]int{0, 0}
	_, err = enrich.NormalizeToMatrix(noSignal(), points, opt)
	assert.ErrorIs(t, err, enrich.ErrNoColumns)

	signals := gn.NewGRanges([]string{"chr1"}, []int{0}, []int{10}, nil)
	signals.AddMeta("gene", []string{"a"})
	opt = enrich.DefaultOptions()
	opt.Extend = [2]int{50, 50}
	opt.WindowSize = 10
	opt.MappingColumn = "gene"
	_, err = enrich.NormalizeToMatrix(signals, targets, opt)
	assert.ErrorIs(t, err, enrich.ErrMapping)
}
