package enrich

import (
	"fmt"
	"math"

	gn "github.com/pbenner/gonetics"
	"github.com/sirupsen/logrus"
)

// ratioTolerance is how close TargetRatio must be to 1 to count as 1.
const ratioTolerance = 1e-6

// Options configures NormalizeToMatrix.
type Options struct {
	// Extend is the upstream/downstream extension in base pairs. Values
	// not evenly divisible by the window width are rounded down with a
	// warning.
	Extend [2]int
	// WindowSize is the flank window width: absolute base pairs when
	// >= 1, a fraction of the region width when in (0,1). A fractional
	// width cannot be combined with a nonzero extension.
	WindowSize float64
	// TargetWindows is the fixed window count for the target body, used
	// only when Extend is entirely zero.
	TargetWindows int
	// ValueColumn names the signal meta column holding the value; empty
	// means every signal counts as 1.
	ValueColumn string
	// MappingColumn optionally restricts each signal to one target, see
	// AggregateOptions.
	MappingColumn string
	// EmptyValue fills windows with no overlapping signal. When
	// smoothing is on and this is left at 0, NaN is used instead so
	// uncovered windows do not drag the smoother toward zero.
	EmptyValue float64
	// Mode selects the aggregation semantics.
	Mode MeanMode
	// IncludeTarget adds columns for the target body. Forced off when
	// all targets are single points.
	IncludeTarget bool
	// TargetRatio is the fraction of the output width devoted to the
	// target body. A ratio of (or beyond) 1 leaves no room for flanks.
	TargetRatio float64
	// Smooth applies SmoothFunc to every row.
	Smooth bool
	// SmoothFunc smooths one row; nil selects a moving average.
	SmoothFunc SmoothFunc
	// Trim holds the low/high quantile fractions for outlier clipping.
	Trim [2]float64
}

// DefaultOptions mirrors the usual TSS-enrichment setup: 5 kb flanks in
// 100 bp windows, a third of the output width for the target body.
func DefaultOptions() Options {
	return Options{
		Extend:        [2]int{5000, 5000},
		WindowSize:    100,
		Mode:          MeanAbsolute,
		IncludeTarget: true,
		TargetRatio:   1.0 / 3,
	}
}

// NormalizeToMatrix converts the signal collection into a fixed-width
// matrix around the target regions. Rows follow the target order, columns
// run upstream, target body, downstream, oriented 5' to 3' regardless of
// strand. Configuration errors abort with no partial result; per-row
// smoothing failures are reported in the returned matrix's FailedRows.
func NormalizeToMatrix(signals, targets gn.GRanges, opt Options) (*NormalizedMatrix, error) {
	nT := targets.Length()
	if nT == 0 {
		return nil, fmt.Errorf("no target regions: %w", ErrConfig)
	}
	if opt.Extend[0] < 0 || opt.Extend[1] < 0 {
		return nil, fmt.Errorf("negative extension (%d, %d): %w", opt.Extend[0], opt.Extend[1], ErrConfig)
	}

	extend := opt.Extend
	ratio := opt.TargetRatio
	if math.Abs(ratio) > 1 {
		logrus.Warnf("target ratio %g out of range, clamping to 1", ratio)
		ratio = 1
	}
	if math.Abs(ratio-1) < ratioTolerance {
		ratio = 1
	}
	if ratio == 1 && (extend[0] != 0 || extend[1] != 0) {
		logrus.Warnf("target ratio 1 leaves no room for flanks, resetting extension (%d, %d) to zero",
			extend[0], extend[1])
		extend = [2]int{0, 0}
	}
	if extend[0] == 0 && extend[1] == 0 && ratio != 1 {
		logrus.Warnf("zero extension, forcing target ratio %g to 1", ratio)
		ratio = 1
	}

	singlePoint := true
	for i := 0; i < nT; i++ {
		if targets.Ranges[i].To-targets.Ranges[i].From > 1 {
			singlePoint = false
			break
		}
	}
	includeTarget := opt.IncludeTarget
	if singlePoint && includeTarget {
		logrus.Warnf("target regions are single points, ignoring the target body")
		includeTarget = false
	}

	emptyValue := opt.EmptyValue
	if opt.Smooth && emptyValue == 0 {
		emptyValue = math.NaN()
	}

	w := 0
	if extend[0] > 0 || extend[1] > 0 {
		if opt.WindowSize <= 0 {
			return nil, fmt.Errorf("extension requires a window width: %w", ErrConfig)
		}
		if opt.WindowSize < 1 {
			return nil, fmt.Errorf("fractional window width %g cannot split a fixed extension: %w",
				opt.WindowSize, ErrConfig)
		}
		w = int(opt.WindowSize)
		if float64(w) != opt.WindowSize {
			logrus.Warnf("window width %g is not an integer, truncating to %d", opt.WindowSize, w)
		}
		for i := range extend {
			if extend[i]%w != 0 {
				rounded := extend[i] / w * w
				logrus.Warnf("extension %d is not a multiple of the window width %d, using %d",
					extend[i], w, rounded)
				extend[i] = rounded
			}
		}
	}

	aggOpt := AggregateOptions{
		Mode:          opt.Mode,
		EmptyValue:    emptyValue,
		ValueColumn:   opt.ValueColumn,
		MappingColumn: opt.MappingColumn,
	}

	var (
		values                [][]float64
		upIdx, tgIdx, downIdx []int
	)
	if singlePoint {
		if extend[0] == 0 && extend[1] == 0 {
			return nil, fmt.Errorf("single-point targets with zero extension: %w", ErrNoColumns)
		}
		block, k, err := singlePointBlock(signals, targets, extend, w, aggOpt)
		if err != nil {
			return nil, err
		}
		// no seam at the point boundary: one combined split, columns
		// partitioned by the extension ratio afterwards
		nUp := int(math.Round(float64(k) * float64(extend[0]) / float64(extend[0]+extend[1])))
		values = block
		upIdx = indexRange(0, nUp)
		downIdx = indexRange(nUp, k)
	} else {
		var up, target, down [][]float64
		var kUp, kDown int
		var err error
		if extend[0] > 0 {
			up, kUp, err = flankBlock(signals, targets, extend[0], w, true, aggOpt)
			if err != nil {
				return nil, err
			}
		}
		if extend[1] > 0 {
			down, kDown, err = flankBlock(signals, targets, extend[1], w, false, aggOpt)
			if err != nil {
				return nil, err
			}
		}
		if includeTarget {
			k := opt.TargetWindows
			if extend[0] > 0 || extend[1] > 0 {
				k = int(math.Round(float64(kUp+kDown) * ratio / (1 - ratio)))
				if k < 1 {
					k = 1
				}
			} else if k < 1 {
				return nil, fmt.Errorf("zero extension requires a fixed target window count: %w", ErrConfig)
			}
			target, _, err = targetBlock(signals, targets, k, aggOpt)
			if err != nil {
				return nil, err
			}
		}
		if up == nil && target == nil && down == nil {
			return nil, fmt.Errorf("zero extension and no target body: %w", ErrNoColumns)
		}
		values, upIdx, tgIdx, downIdx = bindColumns(nT, up, target, down)
	}

	smoothFn := opt.SmoothFunc
	if opt.Smooth && smoothFn == nil {
		smoothFn = MovingAverage(defaultSmoothRadius)
	}
	failed, err := postProcess(values, opt.Smooth, smoothFn, opt.Trim)
	if err != nil {
		return nil, err
	}

	return &NormalizedMatrix{
		Values:          values,
		RowNames:        rowNames(targets),
		ColNames:        columnNames(len(upIdx), len(tgIdx), len(downIdx)),
		UpstreamIndex:   upIdx,
		TargetIndex:     tgIdx,
		DownstreamIndex: downIdx,
		Extend:          extend,
		Smoothed:        opt.Smooth,
		SinglePoint:     singlePoint,
		EmptyValue:      emptyValue,
		FailedRows:      failed,
	}, nil
}

// singlePointBlock handles targets of width <= 1: one combined interval
// per region spanning both flanks around the anchor, split once. The
// anchor is the start for plus/unstranded targets and the end for minus
// targets.
func singlePointBlock(signals, targets gn.GRanges, extend [2]int, w int, aggOpt AggregateOptions) ([][]float64, int, error) {
	n := targets.Length()
	seqnames := make([]string, n)
	from := make([]int, n)
	to := make([]int, n)
	strand := make([]byte, n)
	for i := 0; i < n; i++ {
		seqnames[i] = targets.Seqnames[i]
		strand[i] = targets.Strand[i]
		if targets.Strand[i] == '-' {
			anchor := targets.Ranges[i].To
			from[i] = anchor - extend[1]
			to[i] = anchor + extend[0]
		} else {
			anchor := targets.Ranges[i].From
			from[i] = anchor - extend[0]
			to[i] = anchor + extend[1]
		}
	}
	combined := gn.NewGRanges(seqnames, from, to, strand)

	windows, err := GenerateWindows(combined, SplitSpec{Width: float64(w), KeepShort: true})
	if err != nil {
		return nil, 0, err
	}
	vals, err := AggregateOverlaps(signals, windows, targets, aggOpt)
	if err != nil {
		return nil, 0, err
	}
	return newSubMatrix(windows, vals, combined, aggOpt.EmptyValue)
}

// flankBlock builds, splits and aggregates one flank: the 5' side when
// upstream is true, otherwise the 3' side anchored one base past the
// region end. Splitting runs away from the anchored boundary so windows
// next to the target are full width.
func flankBlock(signals, targets gn.GRanges, ext, w int, upstream bool, aggOpt AggregateOptions) ([][]float64, int, error) {
	n := targets.Length()
	seqnames := make([]string, n)
	from := make([]int, n)
	to := make([]int, n)
	strand := make([]byte, n)
	anchorAtEnd := make([]bool, n)
	for i := 0; i < n; i++ {
		seqnames[i] = targets.Seqnames[i]
		strand[i] = targets.Strand[i]
		minus := targets.Strand[i] == '-'
		if upstream != minus {
			// genomic left flank, anchored at the region start
			from[i] = targets.Ranges[i].From - ext
			to[i] = targets.Ranges[i].From
			anchorAtEnd[i] = true
		} else {
			// genomic right flank, anchored at the region end
			from[i] = targets.Ranges[i].To
			to[i] = targets.Ranges[i].To + ext
		}
	}
	flanks := gn.NewGRanges(seqnames, from, to, strand)

	var (
		wseq        []string
		wfrom, wto  []int
		owner, wpos []int
	)
	for i := 0; i < n; i++ {
		dir := Forward
		if anchorAtEnd[i] {
			dir = Reverse
		}
		spec := SplitSpec{Width: float64(w), Direction: dir, KeepShort: true}
		parts, err := spec.Split(flanks.Ranges[i])
		if err != nil {
			return nil, 0, err
		}
		for j, p := range parts {
			wseq = append(wseq, flanks.Seqnames[i])
			wfrom = append(wfrom, p.From)
			wto = append(wto, p.To)
			owner = append(owner, i)
			wpos = append(wpos, j)
		}
	}
	windows := gn.NewGRanges(wseq, wfrom, wto, nil)
	windows.AddMeta("owner", owner)
	windows.AddMeta("pos", wpos)

	vals, err := AggregateOverlaps(signals, windows, targets, aggOpt)
	if err != nil {
		return nil, 0, err
	}
	return newSubMatrix(windows, vals, flanks, aggOpt.EmptyValue)
}

func targetBlock(signals, targets gn.GRanges, k int, aggOpt AggregateOptions) ([][]float64, int, error) {
	windows, err := GenerateWindows(targets, SplitSpec{Count: k})
	if err != nil {
		return nil, 0, err
	}
	vals, err := AggregateOverlaps(signals, windows, targets, aggOpt)
	if err != nil {
		return nil, 0, err
	}
	return newSubMatrix(windows, vals, targets, aggOpt.EmptyValue)
}

func rowNames(targets gn.GRanges) []string {
	names, _ := targets.GetMeta("names").([]string)
	out := make([]string, targets.Length())
	for i := range out {
		if names != nil && names[i] != "" {
			out[i] = names[i]
			continue
		}
		out[i] = fmt.Sprintf("%s:%d-%d", targets.Seqnames[i], targets.Ranges[i].From, targets.Ranges[i].To)
	}
	return out
}

// columnNames labels the blocks u1..un, t1..tk, d1..dm. The labels are
// for debugging only; only uniqueness and order matter.
func columnNames(nUp, nTarget, nDown int) []string {
	out := make([]string, 0, nUp+nTarget+nDown)
	for i := 1; i <= nUp; i++ {
		out = append(out, fmt.Sprintf("u%d", i))
	}
	for i := 1; i <= nTarget; i++ {
		out = append(out, fmt.Sprintf("t%d", i))
	}
	for i := 1; i <= nDown; i++ {
		out = append(out, fmt.Sprintf("d%d", i))
	}
	return out
}
