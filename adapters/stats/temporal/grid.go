package temporal

import (
	"fmt"
	"sort"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/series"

	"github.com/montanaflynn/stats"
)

// This package puts a table's rows on an evenly spaced time grid. Hours with
// no reading become missing values, so the gap scanner sees them as runs.

// ResolutionInterval defines the "heartbeat" of the time series
type ResolutionInterval string

const (
	IntervalHour ResolutionInterval = "hour"
	IntervalDay  ResolutionInterval = "day"
)

// Duration returns the time.Duration for this interval
func (r ResolutionInterval) Duration() time.Duration {
	switch r {
	case IntervalDay:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// next steps one interval forward on the wall clock, so daily grid points
// stay on midnight across daylight saving changes
func (r ResolutionInterval) next(t time.Time) time.Time {
	if r == IntervalDay {
		return t.AddDate(0, 0, 1)
	}
	return t.Add(r.Duration())
}

// AggregationFunc defines how to combine several readings in the same bucket
type AggregationFunc string

const (
	AggMean AggregationFunc = "mean" // Average of values in period
	AggSum  AggregationFunc = "sum"  // Sum all values in period (rainfall totals)
	AggMax  AggregationFunc = "max"  // Maximum value in period
	AggMin  AggregationFunc = "min"  // Minimum value in period
	AggLast AggregationFunc = "last" // Latest reading in period
)

// GridConfig controls the resampling behavior
type GridConfig struct {
	Interval      ResolutionInterval
	AggregateFunc AggregationFunc
	// Aggregates overrides AggregateFunc per column name
	Aggregates map[string]AggregationFunc
	// MaxRows guards against a stray timestamp stretching the grid over years
	MaxRows int
}

// DefaultGridConfig resamples to hourly means, capped at ten years of rows
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Interval:      IntervalHour,
		AggregateFunc: AggMean,
		MaxRows:       10 * 366 * 24,
	}
}

// GridSummary describes what regularizing changed
type GridSummary struct {
	InputRows    int `json:"input_rows"`
	GridRows     int `json:"grid_rows"`
	InsertedRows int `json:"inserted_rows"` // grid buckets with no input row
	MergedRows   int `json:"merged_rows"`   // input rows folded into an occupied bucket
}

// Regularize returns a copy of table with one row per interval from the first
// to the last timestamp. Rows are bucketed by truncating their timestamp;
// buckets holding several rows are aggregated, empty buckets are missing.
// Text columns keep the latest non-empty cell of each bucket.
func Regularize(table *series.Table, config GridConfig) (*series.Table, GridSummary, error) {
	summary := GridSummary{InputRows: table.Rows()}
	for _, c := range table.Columns {
		if c.Len() != table.Rows() {
			return nil, summary, core.NewLengthMismatchError(c.Name, c.Len(), table.Rows())
		}
	}
	if table.Rows() == 0 {
		return table.Clone(), summary, nil
	}

	order := chronological(table.Timestamps)
	first := truncateToInterval(table.Timestamps[order[0]], config.Interval)
	last := truncateToInterval(table.Timestamps[order[len(order)-1]], config.Interval)
	step := config.Interval.Duration()
	// Offsets are rounded to the nearest step: a calendar day may be 23 or 25 hours.
	if span := int((last.Sub(first)+step/2)/step) + 1; config.MaxRows > 0 && span > config.MaxRows {
		return nil, summary, core.NewMalformedInputError(fmt.Sprintf(
			"timestamps span %d %s intervals (limit %d)", span, config.Interval, config.MaxRows))
	}
	grid := generateTimeGrid(first, last, config.Interval)

	buckets := make([][]int, len(grid))
	for _, row := range order {
		offset := truncateToInterval(table.Timestamps[row], config.Interval).Sub(first)
		b := min(int((offset+step/2)/step), len(grid)-1)
		buckets[b] = append(buckets[b], row)
	}

	out := &series.Table{
		TimeColumn: table.TimeColumn,
		Timestamps: grid,
		Columns:    make([]series.Column, len(table.Columns)),
	}
	for i, c := range table.Columns {
		out.Columns[i] = resampleColumn(c, buckets, config.aggregateFor(c.Name))
	}

	summary.GridRows = len(grid)
	for _, rows := range buckets {
		switch {
		case len(rows) == 0:
			summary.InsertedRows++
		case len(rows) > 1:
			summary.MergedRows += len(rows) - 1
		}
	}
	return out, summary, nil
}

func (c GridConfig) aggregateFor(column string) AggregationFunc {
	if fn, ok := c.Aggregates[column]; ok {
		return fn
	}
	return c.AggregateFunc
}

// chronological returns row indices ordered by timestamp, ties in input order
func chronological(timestamps []time.Time) []int {
	order := make([]int, len(timestamps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return timestamps[order[a]].Before(timestamps[order[b]])
	})
	return order
}

func resampleColumn(c series.Column, buckets [][]int, fn AggregationFunc) series.Column {
	out := series.Column{Name: c.Name}
	if !c.IsNumeric() {
		out.Text = make([]string, len(buckets))
		for b, rows := range buckets {
			for _, row := range rows {
				if c.Text[row] != "" {
					out.Text[b] = c.Text[row]
				}
			}
		}
		return out
	}

	out.Values = make([]float64, len(buckets))
	for b, rows := range buckets {
		observed := make(stats.Float64Data, 0, len(rows))
		for _, row := range rows {
			if !series.IsMissing(c.Values[row]) {
				observed = append(observed, c.Values[row])
			}
		}
		out.Values[b] = aggregate(observed, fn)
	}
	return out
}

// aggregate applies the aggregation function; an empty bucket is missing
func aggregate(values stats.Float64Data, fn AggregationFunc) float64 {
	if len(values) == 0 {
		return series.Missing()
	}

	var v float64
	switch fn {
	case AggSum:
		v, _ = values.Sum()
	case AggMax:
		v, _ = values.Max()
	case AggMin:
		v, _ = values.Min()
	case AggLast:
		v = values[len(values)-1]
	default:
		v, _ = values.Mean()
	}
	return v
}

// generateTimeGrid creates evenly spaced time points from start through end
func generateTimeGrid(start, end time.Time, interval ResolutionInterval) []time.Time {
	grid := []time.Time{}
	for current := start; !current.After(end); current = interval.next(current) {
		grid = append(grid, current)
	}
	return grid
}

// truncateToInterval rounds time down to interval boundary
func truncateToInterval(t time.Time, interval ResolutionInterval) time.Time {
	switch interval {
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
}
