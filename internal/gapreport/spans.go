package gapreport

import (
	"time"

	"gapfill/domain/imputation"
	"gapfill/domain/series"
)

// Span is one gap drawn on a time axis: from the last valid reading before
// the run to the first valid reading after it. Runs at either edge of the
// series are clamped to the first or last timestamp.
type Span struct {
	Run     series.Run          `json:"run"`
	From    time.Time           `json:"from"`
	To      time.Time           `json:"to"`
	Class   imputation.GapClass `json:"class"`
	Method  imputation.Method   `json:"method"`
	Status  imputation.Status   `json:"status"`
	Reason  imputation.Reason   `json:"reason,omitempty"`
	Support int                 `json:"support"`
}

// Hours returns the number of missing hourly readings in the span
func (s Span) Hours() int {
	return s.Run.Length
}

// Spans maps a column's outcomes onto its timestamp axis. Timestamps may be
// nil, in which case From and To stay zero.
func Spans(timestamps []time.Time, outcomes []imputation.RunOutcome) []Span {
	spans := make([]Span, 0, len(outcomes))
	for _, o := range outcomes {
		span := Span{
			Run:     o.Run,
			Class:   o.Class,
			Method:  o.Method,
			Status:  o.Status,
			Reason:  o.Reason,
			Support: o.Support,
		}
		if n := len(timestamps); n > 0 {
			from := o.Run.Start - 1
			if from < 0 {
				from = 0
			}
			to := o.Run.End() + 1
			if to > n-1 {
				to = n - 1
			}
			span.From, span.To = timestamps[from], timestamps[to]
		}
		spans = append(spans, span)
	}
	return spans
}
