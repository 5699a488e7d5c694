package enrich_test

import (
	"testing"

	gn "github.com/pbenner/gonetics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sameet/EnrichedHeatmap/enrich"
)

// TestSplit_WidthEvenlyDivides splits a 10 bp region into five 2 bp
// windows covering the region exactly.
func TestSplit_WidthEvenlyDivides(t *testing.T) {
	spec := enrich.SplitSpec{Width: 2}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 5)
	for i, p := range parts {
		assert.Equal(t, 2*i, p.From)
		assert.Equal(t, 2*i+2, p.To)
	}
}

// TestSplit_DropsShortRemainder verifies the trailing 1 bp remainder of a
// 10 bp region split by 3 is dropped when KeepShort is off.
func TestSplit_DropsShortRemainder(t *testing.T) {
	spec := enrich.SplitSpec{Width: 3}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, gn.NewRange(6, 9), parts[2])
}

// TestSplit_KeepsShortRemainder verifies the trailing remainder is kept
// at its true width when KeepShort is on.
func TestSplit_KeepsShortRemainder(t *testing.T) {
	spec := enrich.SplitSpec{Width: 3, KeepShort: true}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, gn.NewRange(9, 10), parts[3])
}

// TestSplit_ReverseAnchorsFullWindowsAtEnd verifies reverse splitting
// pushes the short window to the region start while the output stays
// ordered left-to-right.
func TestSplit_ReverseAnchorsFullWindowsAtEnd(t *testing.T) {
	spec := enrich.SplitSpec{Width: 3, Direction: enrich.Reverse, KeepShort: true}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, gn.NewRange(0, 1), parts[0])
	assert.Equal(t, gn.NewRange(1, 4), parts[1])
	assert.Equal(t, gn.NewRange(7, 10), parts[3])
}

// TestSplit_ReverseDropsShortRemainder verifies the short window at the
// region start disappears without KeepShort.
func TestSplit_ReverseDropsShortRemainder(t *testing.T) {
	spec := enrich.SplitSpec{Width: 3, Direction: enrich.Reverse}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, gn.NewRange(1, 4), parts[0])
	assert.Equal(t, gn.NewRange(7, 10), parts[2])
}

// TestSplit_ByCountSpansRegionExactly verifies count-based splitting
// yields exactly k contiguous windows spanning the region.
func TestSplit_ByCountSpansRegionExactly(t *testing.T) {
	spec := enrich.SplitSpec{Count: 5}
	parts, err := spec.Split(gn.NewRange(3, 20))
	require.NoError(t, err)
	require.Len(t, parts, 5)
	assert.Equal(t, 3, parts[0].From)
	assert.Equal(t, 20, parts[4].To)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].To, parts[i].From)
	}
}

// TestSplit_ByCountNarrowRegion verifies a region narrower than the
// window count still yields k contiguous windows (some zero-width).
func TestSplit_ByCountNarrowRegion(t *testing.T) {
	spec := enrich.SplitSpec{Count: 5}
	parts, err := spec.Split(gn.NewRange(0, 3))
	require.NoError(t, err)
	require.Len(t, parts, 5)
	assert.Equal(t, 0, parts[0].From)
	assert.Equal(t, 3, parts[4].To)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].To, parts[i].From)
	}
}

// TestSplit_FractionalWidth verifies a width in (0,1) is resolved as a
// fraction of the region width.
func TestSplit_FractionalWidth(t *testing.T) {
	spec := enrich.SplitSpec{Width: 0.25}
	parts, err := spec.Split(gn.NewRange(0, 100))
	require.NoError(t, err)
	require.Len(t, parts, 4)
	for _, p := range parts {
		assert.Equal(t, 25, p.To-p.From)
	}
}

// TestSplit_TruncatesNonIntegralWidth verifies a non-integral absolute
// width is truncated (with a warning) rather than rejected.
func TestSplit_TruncatesNonIntegralWidth(t *testing.T) {
	spec := enrich.SplitSpec{Width: 2.5}
	parts, err := spec.Split(gn.NewRange(0, 10))
	require.NoError(t, err)
	require.Len(t, parts, 5)
	assert.Equal(t, 2, parts[0].To-parts[0].From)
}

// TestSplit_InvalidParameters covers the fatal splitting configurations.
func TestSplit_InvalidParameters(t *testing.T) {
	_, err := enrich.SplitSpec{}.Split(gn.NewRange(0, 10))
	assert.ErrorIs(t, err, enrich.ErrInvalidWindow)

	_, err = enrich.SplitSpec{Width: -1}.Split(gn.NewRange(0, 10))
	assert.ErrorIs(t, err, enrich.ErrInvalidWindow)

	// 0.1 of a 4 bp region rounds to zero
	_, err = enrich.SplitSpec{Width: 0.1}.Split(gn.NewRange(0, 4))
	assert.ErrorIs(t, err, enrich.ErrInvalidWindow)
}

// TestGenerateWindows_TagsOwnerAndPosition verifies every window carries
// its owning target row and left-to-right position.
func TestGenerateWindows_TagsOwnerAndPosition(t *testing.T) {
	targets := gn.NewGRanges([]string{"chr1", "chr2"}, []int{0, 100}, []int{10, 110}, nil)
	windows, err := enrich.GenerateWindows(targets, enrich.SplitSpec{Width: 5})
	require.NoError(t, err)
	require.Equal(t, 4, windows.Length())
	assert.Equal(t, []int{0, 0, 1, 1}, windows.GetMetaInt("owner"))
	assert.Equal(t, []int{0, 1, 0, 1}, windows.GetMetaInt("pos"))
	assert.Equal(t, "chr2", windows.Seqnames[2])
	assert.Equal(t, gn.NewRange(100, 105), windows.Ranges[2])
}
