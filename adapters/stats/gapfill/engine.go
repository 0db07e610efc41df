package gapfill

import (
	"errors"
	"fmt"
	"math"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"gonum.org/v1/gonum/interp"
)

// Engine fills short and medium runs of missing values. It holds no state
// beyond its policy and is safe for concurrent use on distinct buffers.
type Engine struct {
	policy imputation.Policy
}

// Trace is the fitted curve of one imputed run evaluated from the point
// before the run through the point after it, for plotting.
type Trace struct {
	Run    series.Run        `json:"run"`
	Method imputation.Method `json:"method"`
	Points []series.Point    `json:"points"`
}

// NewEngine creates an engine after validating the policy
func NewEngine(policy imputation.Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the engine's thresholds
func (e *Engine) Policy() imputation.Policy {
	return e.policy
}

// Impute returns a copy of s with every fillable run filled. s itself is
// not modified. Malformed input is rejected before any work is done.
func (e *Engine) Impute(s series.Series) (series.Series, imputation.ColumnReport, error) {
	out, report, _, err := e.impute(s, false)
	return out, report, err
}

// ImputeTraced is Impute plus the display curve of every imputed run
func (e *Engine) ImputeTraced(s series.Series) (series.Series, imputation.ColumnReport, []Trace, error) {
	return e.impute(s, true)
}

func (e *Engine) impute(s series.Series, traced bool) (series.Series, imputation.ColumnReport, []Trace, error) {
	if err := s.Validate(); err != nil {
		return series.Series{}, imputation.ColumnReport{}, nil, err
	}

	out := s.Clone()
	var traces []Trace
	var hook traceHook
	if traced {
		hook = func(run series.Run, method imputation.Method, p interp.Predictor) {
			traces = append(traces, Trace{Run: run, Method: method, Points: evaluate(p, run.Start-1, run.End()+1)})
		}
	}
	report := e.imputeValues(out.Name, out.Values, hook)
	return out, report, traces, nil
}

// ImputeInPlace fills runs directly in values. The caller must own the
// buffer exclusively for the duration of the call.
func (e *Engine) ImputeInPlace(name string, values []float64) (imputation.ColumnReport, error) {
	if len(values) < series.MinLength {
		return imputation.ColumnReport{}, core.NewSeriesTooShortError(name, len(values), series.MinLength)
	}
	return e.imputeValues(name, values, nil), nil
}

type traceHook func(series.Run, imputation.Method, interp.Predictor)

// imputeValues scans and fills in one pass. Runs are filled in ascending
// order, so a spline window reaching back over an earlier run sees the
// values written for it.
func (e *Engine) imputeValues(name string, values []float64, hook traceHook) imputation.ColumnReport {
	report := imputation.ColumnReport{
		Column:  name,
		Length:  len(values),
		Missing: series.CountMissing(values),
	}

	for run := range Scan(values) {
		outcome := e.imputeRun(values, run, hook)
		if outcome.Imputed() {
			report.Imputed += run.Length
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Remaining = report.Missing - report.Imputed
	return report
}

// ImputeRun fills a single run produced by Scan. Values are written only
// after every position has been evaluated, so a run is either filled
// completely or left untouched.
func (e *Engine) ImputeRun(values []float64, run series.Run) imputation.RunOutcome {
	return e.imputeRun(values, run, nil)
}

func (e *Engine) imputeRun(values []float64, run series.Run, hook traceHook) imputation.RunOutcome {
	outcome := imputation.RunOutcome{
		Run:    run,
		Class:  e.policy.Classify(run.Length),
		Method: e.policy.MethodFor(run.Length),
		Status: imputation.StatusSkipped,
	}
	if outcome.Method == imputation.MethodSkip {
		outcome.Reason = imputation.ReasonGapTooLong
		return outcome
	}
	if run.Start < 0 || run.Length < 1 || run.End() >= len(values) {
		outcome.Reason = imputation.ReasonInsufficientSupport
		return outcome
	}

	predictor, window, err := e.fit(values, run, outcome.Method)
	outcome.Support = window.Len()
	if err != nil {
		outcome.Reason = reasonFor(err)
		return outcome
	}

	filled := make([]float64, run.Length)
	for k := range filled {
		v := predictor.Predict(float64(run.Start + k))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			outcome.Reason = imputation.ReasonFitFailed
			return outcome
		}
		filled[k] = v
	}
	copy(values[run.Start:run.End()+1], filled)

	if hook != nil {
		hook(run, outcome.Method, predictor)
	}
	outcome.Status = imputation.StatusImputed
	return outcome
}

// Trace fits the run's interpolant against values without writing anything
// and evaluates it from the point before the run to the point after it.
func (e *Engine) Trace(values []float64, run series.Run) (Trace, error) {
	method := e.policy.MethodFor(run.Length)
	if method == imputation.MethodSkip {
		return Trace{}, core.NewInsufficientSupportError(run.Start, run.Length, "gap too long to interpolate")
	}
	if run.Start < 0 || run.Length < 1 || run.End() >= len(values) {
		return Trace{}, core.NewInsufficientSupportError(run.Start, run.Length, "run outside series")
	}
	predictor, _, err := e.fit(values, run, method)
	if err != nil {
		return Trace{}, err
	}
	return Trace{Run: run, Method: method, Points: evaluate(predictor, run.Start-1, run.End()+1)}, nil
}

// fit builds the support window for the run and fits the method's
// interpolant through it.
func (e *Engine) fit(values []float64, run series.Run, method imputation.Method) (interp.Predictor, series.SupportWindow, error) {
	switch method {
	case imputation.MethodLinear:
		window, err := LinearSupport(values, run)
		if err != nil {
			return nil, window, err
		}
		xs, ys := window.XY()
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, window, fmt.Errorf("%w: %v", core.ErrFitFailed, err)
		}
		return &pl, window, nil

	case imputation.MethodCubicSpline:
		window, err := SplineSupport(values, run, e.policy.Neighborhood, e.policy.MinSplinePoints)
		if err != nil {
			return nil, window, err
		}
		xs, ys := window.XY()
		var spline interp.NotAKnotCubic
		if err := spline.Fit(xs, ys); err != nil {
			return nil, window, fmt.Errorf("%w: %v", core.ErrFitFailed, err)
		}
		return &spline, window, nil

	default:
		return nil, series.SupportWindow{}, fmt.Errorf("unsupported method %q", method)
	}
}

func evaluate(p interp.Predictor, from, to int) []series.Point {
	points := make([]series.Point, 0, to-from+1)
	for i := from; i <= to; i++ {
		points = append(points, series.Point{Index: i, Value: p.Predict(float64(i))})
	}
	return points
}

func reasonFor(err error) imputation.Reason {
	switch {
	case errors.Is(err, core.ErrInsufficientSupport):
		return imputation.ReasonInsufficientSupport
	default:
		return imputation.ReasonFitFailed
	}
}
