// Package enrich converts genomic signal (pointwise or interval-based,
// e.g. methylation calls or ChIP-seq coverage) into a fixed-width numeric
// matrix around a set of target regions, suitable for heatmap rendering.
// Each matrix row is one target region, each column a position window
// upstream of, inside, or downstream of that region.
//
// Interval collections are gonetics.GRanges values; signal values, target
// names and window bookkeeping ride in their meta columns. The entry point
// is NormalizeToMatrix.
package enrich
