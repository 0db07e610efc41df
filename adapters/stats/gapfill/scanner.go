package gapfill

import (
	"iter"

	"gapfill/domain/series"
)

// ============================================================================
// GAP SCANNER
// ============================================================================
// Walks a value buffer once, left to right, and yields every maximal run of
// missing values as (start, length). The cursor reads the buffer lazily, so a
// consumer may fill a yielded run before the scan moves on; the scanner has
// already stepped past that run's indices when it resumes.
// ============================================================================

// Scan yields the runs of missing values in ascending start order.
// A run touching the last index is yielded with its true length.
func Scan(values []float64) iter.Seq[series.Run] {
	return func(yield func(series.Run) bool) {
		cursor := 0
		for cursor < len(values) {
			if !series.IsMissing(values[cursor]) {
				cursor++
				continue
			}

			length := 1
			for cursor+length < len(values) && series.IsMissing(values[cursor+length]) {
				length++
			}
			if !yield(series.Run{Start: cursor, Length: length}) {
				return
			}
			cursor += length
		}
	}
}

// Runs materializes Scan into a slice
func Runs(values []float64) []series.Run {
	var runs []series.Run
	for run := range Scan(values) {
		runs = append(runs, run)
	}
	return runs
}
