package enrich

import (
	"fmt"
	"math"

	gn "github.com/pbenner/gonetics"
	"github.com/sirupsen/logrus"
)

// Direction selects which end of a region window generation starts from.
type Direction int

const (
	// Forward generates windows from the region start; a short remainder
	// ends up at the region end.
	Forward Direction = iota
	// Reverse generates windows from the region end backwards; a short
	// remainder ends up at the region start. The returned windows are
	// still ordered left-to-right along the genome.
	Reverse
)

// SplitSpec describes how a region is cut into windows. Exactly one of
// Count and Width must be set. Width >= 1 is an absolute width in base
// pairs; a Width in (0,1) is a fraction of the region width, resolved per
// region. Count-based splitting is always exact and ignores Direction and
// KeepShort.
type SplitSpec struct {
	Width     float64
	Count     int
	Direction Direction
	KeepShort bool
}

// Split cuts r into consecutive non-overlapping windows.
func (s SplitSpec) Split(r gn.Range) ([]gn.Range, error) {
	if s.Count > 0 {
		return splitByCount(r, s.Count), nil
	}
	if s.Width == 0 {
		return nil, fmt.Errorf("split: window width and count both unset: %w", ErrInvalidWindow)
	}
	if s.Width < 0 {
		return nil, fmt.Errorf("split: window width %g is not positive: %w", s.Width, ErrInvalidWindow)
	}
	var w int
	if s.Width < 1 {
		w = int(math.Round(float64(r.To-r.From) * s.Width))
		if w < 1 {
			return nil, fmt.Errorf("split: fractional width %g resolves to %d bp on a %d bp region: %w",
				s.Width, w, r.To-r.From, ErrInvalidWindow)
		}
	} else {
		w = int(s.Width)
		if float64(w) != s.Width {
			logrus.Warnf("window width %g is not an integer, truncating to %d", s.Width, w)
		}
	}
	return splitByWidth(r, w, s.Direction, s.KeepShort), nil
}

// splitByCount cuts r into exactly k contiguous windows of near-equal
// width by rounding linearly interpolated boundaries. The first window
// starts at r.From and the last ends exactly at r.To. Regions narrower
// than k yield zero-width windows.
func splitByCount(r gn.Range, k int) []gn.Range {
	width := r.To - r.From
	out := make([]gn.Range, k)
	prev := r.From
	for i := 1; i <= k; i++ {
		b := r.From + int(math.Round(float64(i)*float64(width)/float64(k)))
		out[i-1] = gn.NewRange(prev, b)
		prev = b
	}
	return out
}

func splitByWidth(r gn.Range, w int, dir Direction, keepShort bool) []gn.Range {
	var out []gn.Range
	if dir == Forward {
		for from := r.From; from < r.To; from += w {
			to := from + w
			if to > r.To {
				if !keepShort {
					break
				}
				to = r.To
			}
			out = append(out, gn.NewRange(from, to))
		}
		return out
	}
	for to := r.To; to > r.From; to -= w {
		from := to - w
		if from < r.From {
			if !keepShort {
				break
			}
			from = r.From
		}
		out = append(out, gn.NewRange(from, to))
	}
	// generated right-to-left, restore genomic order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// GenerateWindows splits every target region with the same spec and
// returns one GRanges holding all windows, with two int meta columns:
// "owner" is the 0-based row of the owning target and "pos" the
// left-to-right window index within that target. Strand plays no role in
// the geometry; it is consulted later during matrix assembly.
func GenerateWindows(targets gn.GRanges, spec SplitSpec) (gn.GRanges, error) {
	var (
		seqnames   []string
		from, to   []int
		owner, pos []int
	)
	for i := 0; i < targets.Length(); i++ {
		parts, err := spec.Split(targets.Ranges[i])
		if err != nil {
			return gn.GRanges{}, err
		}
		for j, p := range parts {
			seqnames = append(seqnames, targets.Seqnames[i])
			from = append(from, p.From)
			to = append(to, p.To)
			owner = append(owner, i)
			pos = append(pos, j)
		}
	}
	windows := gn.NewGRanges(seqnames, from, to, nil)
	windows.AddMeta("owner", owner)
	windows.AddMeta("pos", pos)
	return windows, nil
}
