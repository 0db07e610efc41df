package gapreport

import (
	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"github.com/montanaflynn/stats"
)

// ValueStats describes the observed readings of a column
type ValueStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary holds gap and value statistics for one column
type Summary struct {
	Column          string                      `json:"column"`
	Rows            int                         `json:"rows"`
	MissingBefore   int                         `json:"missing_before"`
	MissingAfter    int                         `json:"missing_after"`
	MissingRate     float64                     `json:"missing_rate"`
	Runs            int                         `json:"runs"`
	RunLengthMean   float64                     `json:"run_length_mean"`
	RunLengthMedian float64                     `json:"run_length_median"`
	RunLengthMax    int                         `json:"run_length_max"`
	ByClass         map[imputation.GapClass]int `json:"by_class"`
	Before          ValueStats                  `json:"before"`
	After           ValueStats                  `json:"after"`
}

// Summarize computes statistics for a column before and after imputation.
// after may be nil when only the gap structure is of interest.
func Summarize(column string, before, after []float64, report imputation.ColumnReport) Summary {
	s := Summary{
		Column:        column,
		Rows:          len(before),
		MissingBefore: series.CountMissing(before),
		Runs:          len(report.Outcomes),
		ByClass:       make(map[imputation.GapClass]int),
		Before:        describe(before),
	}
	if s.Rows > 0 {
		s.MissingRate = float64(s.MissingBefore) / float64(s.Rows)
	}
	if after != nil {
		s.MissingAfter = series.CountMissing(after)
		s.After = describe(after)
	} else {
		s.MissingAfter = s.MissingBefore
		s.After = s.Before
	}

	lengths := make(stats.Float64Data, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		lengths = append(lengths, float64(o.Run.Length))
		s.ByClass[o.Class]++
	}
	if len(lengths) > 0 {
		s.RunLengthMean, _ = stats.Mean(lengths)
		s.RunLengthMedian, _ = stats.Median(lengths)
		longest, _ := stats.Max(lengths)
		s.RunLengthMax = int(longest)
	}
	return s
}

// describe ignores missing readings; an all-missing column yields zero stats
func describe(values []float64) ValueStats {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !series.IsMissing(v) {
			data = append(data, v)
		}
	}
	vs := ValueStats{Count: len(data)}
	if len(data) == 0 {
		return vs
	}
	vs.Mean, _ = data.Mean()
	vs.StdDev, _ = data.StandardDeviation()
	vs.Min, _ = data.Min()
	vs.Max, _ = data.Max()
	return vs
}
