package enrich

import (
	"fmt"
	"math"
	"sort"

	gn "github.com/pbenner/gonetics"
)

// MeanMode selects how signal values overlapping a window are averaged.
// The mode is resolved once at configuration time.
type MeanMode int

const (
	// MeanAbsolute is the arithmetic mean of the overlapping signal
	// values, regardless of how much of each signal overlaps.
	MeanAbsolute MeanMode = iota
	// MeanWeighted weights every signal value by its overlap width and
	// normalizes by the total overlap width.
	MeanWeighted
	// MeanW0 uses the weighted numerator but normalizes by the total
	// overlap width plus the window bases covered by no signal, so
	// uncovered bases dilute the mean.
	MeanW0
	// MeanCoverage sums value times overlap fraction of the window,
	// without normalizing by the total overlap.
	MeanCoverage
)

// ParseMeanMode resolves a mode name ("absolute", "weighted", "w0",
// "coverage") into a MeanMode.
func ParseMeanMode(s string) (MeanMode, error) {
	switch s {
	case "absolute":
		return MeanAbsolute, nil
	case "weighted":
		return MeanWeighted, nil
	case "w0":
		return MeanW0, nil
	case "coverage":
		return MeanCoverage, nil
	}
	return 0, fmt.Errorf("unknown mean mode %q: %w", s, ErrConfig)
}

func (m MeanMode) String() string {
	switch m {
	case MeanAbsolute:
		return "absolute"
	case MeanWeighted:
		return "weighted"
	case MeanW0:
		return "w0"
	case MeanCoverage:
		return "coverage"
	}
	return fmt.Sprintf("MeanMode(%d)", int(m))
}

// AggregateOptions configures AggregateOverlaps.
type AggregateOptions struct {
	Mode MeanMode
	// EmptyValue fills windows with no overlapping signal.
	EmptyValue float64
	// ValueColumn names the signal meta column carrying the value
	// ([]float64 or []int). Empty means every signal counts as 1.
	ValueColumn string
	// MappingColumn optionally names a signal meta column restricting
	// every signal to one target: string labels must equal the owning
	// target's "names" entry, int labels its 1-based row position.
	MappingColumn string
}

// AggregateOverlaps joins signals against generated windows and computes
// one aggregate value per window. The join is done on coordinates only
// (FindOverlaps never consults strand) and costs O((n+m) log(n+m)) via the
// gonetics sweep. NaN signal values are excluded from every sum and count.
// Neither input is mutated.
func AggregateOverlaps(signals, windows, targets gn.GRanges, opt AggregateOptions) ([]float64, error) {
	n := windows.Length()

	vals, err := signalValues(signals, opt.ValueColumn)
	if err != nil {
		return nil, err
	}
	var (
		owner      []int
		nameLabels []string
		rowLabels  []int
		names      []string
	)
	if opt.MappingColumn != "" {
		v, ok := windows.GetMeta("owner").([]int)
		if !ok {
			return nil, fmt.Errorf("windows carry no owner column: %w", ErrMapping)
		}
		owner = v
		switch v := signals.GetMeta(opt.MappingColumn).(type) {
		case []string:
			nameLabels = v
		case []int:
			rowLabels = v
		case nil:
			return nil, fmt.Errorf("signals carry no %q column: %w", opt.MappingColumn, ErrMapping)
		default:
			return nil, fmt.Errorf("mapping column %q must hold strings or ints: %w", opt.MappingColumn, ErrMapping)
		}
		if nameLabels != nil {
			v, ok := targets.GetMeta("names").([]string)
			if !ok {
				return nil, fmt.Errorf("mapping by %q requires named target regions: %w", opt.MappingColumn, ErrMapping)
			}
			names = v
		}
	}

	wHits, sHits := gn.FindOverlaps(windows, signals)

	cnt := make([]int, n)
	sumV := make([]float64, n)  // plain value sum
	sumVW := make([]float64, n) // value times overlap width
	sumW := make([]float64, n)  // overlap width
	var hits [][]gn.Range
	if opt.Mode == MeanW0 {
		hits = make([][]gn.Range, n)
	}

	for i := range wHits {
		wi, si := wHits[i], sHits[i]
		from := max(windows.Ranges[wi].From, signals.Ranges[si].From)
		to := min(windows.Ranges[wi].To, signals.Ranges[si].To)
		if to <= from {
			continue
		}
		if nameLabels != nil {
			if nameLabels[si] != names[owner[wi]] {
				continue
			}
		} else if rowLabels != nil {
			if rowLabels[si] != owner[wi]+1 {
				continue
			}
		}
		v := 1.0
		if vals != nil {
			v = vals[si]
		}
		if math.IsNaN(v) {
			continue
		}
		ov := float64(to - from)
		cnt[wi]++
		sumV[wi] += v
		sumVW[wi] += v * ov
		sumW[wi] += ov
		if hits != nil {
			hits[wi] = append(hits[wi], gn.NewRange(from, to))
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if cnt[i] == 0 {
			out[i] = opt.EmptyValue
			continue
		}
		winLen := float64(windows.Ranges[i].To - windows.Ranges[i].From)
		switch opt.Mode {
		case MeanAbsolute:
			out[i] = sumV[i] / float64(cnt[i])
		case MeanWeighted:
			out[i] = sumVW[i] / sumW[i]
		case MeanW0:
			uncovered := winLen - float64(unionWidth(hits[i]))
			out[i] = sumVW[i] / (sumW[i] + uncovered)
		case MeanCoverage:
			out[i] = sumVW[i] / winLen
		}
	}
	return out, nil
}

func signalValues(signals gn.GRanges, column string) ([]float64, error) {
	if column == "" {
		return nil, nil
	}
	switch v := signals.GetMeta(column).(type) {
	case []float64:
		return v, nil
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("signals carry no %q column: %w", column, ErrConfig)
	default:
		return nil, fmt.Errorf("signal column %q is not numeric: %w", column, ErrConfig)
	}
}

// unionWidth returns the number of bases covered by at least one range.
func unionWidth(rs []gn.Range) int {
	if len(rs) == 0 {
		return 0
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].From < rs[j].From })
	total := 0
	curFrom, curTo := rs[0].From, rs[0].To
	for _, r := range rs[1:] {
		if r.From > curTo {
			total += curTo - curFrom
			curFrom, curTo = r.From, r.To
		} else if r.To > curTo {
			curTo = r.To
		}
	}
	return total + curTo - curFrom
}
