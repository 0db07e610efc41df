package gapfill

import (
	"fmt"
	"slices"

	"gapfill/domain/core"
	"gapfill/domain/series"
)

// LinearSupport returns the two points bracketing the run: the value just
// before its first index and the value just after its last.
func LinearSupport(values []float64, run series.Run) (series.SupportWindow, error) {
	before, after := run.Start-1, run.End()+1
	if before < 0 {
		return series.SupportWindow{}, core.NewInsufficientSupportError(run.Start, run.Length, "run starts at the first index")
	}
	if after >= len(values) {
		return series.SupportWindow{}, core.NewInsufficientSupportError(run.Start, run.Length, "run ends at the last index")
	}
	if series.IsMissing(values[before]) || series.IsMissing(values[after]) {
		return series.SupportWindow{}, core.NewInsufficientSupportError(run.Start, run.Length, "neighbour is missing")
	}

	return series.SupportWindow{
		Before: []series.Point{{Index: before, Value: values[before]}},
		After:  []series.Point{{Index: after, Value: values[after]}},
	}, nil
}

// SplineSupport gathers up to neighborhood consecutive non-missing points on
// each side of the run. Each side starts at the point adjacent to the run and
// stops at the first missing value or the buffer edge. Both sides must be
// non-empty and the window must hold at least minPoints points.
func SplineSupport(values []float64, run series.Run, neighborhood, minPoints int) (series.SupportWindow, error) {
	var w series.SupportWindow

	for i := run.Start - 1; i >= 0 && run.Start-i <= neighborhood; i-- {
		if series.IsMissing(values[i]) {
			break
		}
		w.Before = append(w.Before, series.Point{Index: i, Value: values[i]})
	}
	slices.Reverse(w.Before)

	for i := run.End() + 1; i < len(values) && i-run.End() <= neighborhood; i++ {
		if series.IsMissing(values[i]) {
			break
		}
		w.After = append(w.After, series.Point{Index: i, Value: values[i]})
	}

	switch {
	case len(w.Before) == 0:
		return w, core.NewInsufficientSupportError(run.Start, run.Length, "no point before run")
	case len(w.After) == 0:
		return w, core.NewInsufficientSupportError(run.Start, run.Length, "no point after run")
	case w.Len() < minPoints:
		return w, core.NewInsufficientSupportError(run.Start, run.Length,
			fmt.Sprintf("%d support points, need %d", w.Len(), minPoints))
	}
	return w, nil
}
