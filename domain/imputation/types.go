package imputation

import (
	"strconv"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/series"
)

// Method is the interpolation technique chosen for a run
type Method string

const (
	MethodLinear      Method = "linear"
	MethodCubicSpline Method = "cubic_spline"
	MethodSkip        Method = "skip" // long gap, deliberately left missing
)

// GapClass buckets a run by length
type GapClass string

const (
	GapShort  GapClass = "short"
	GapMedium GapClass = "medium"
	GapLong   GapClass = "long"
)

// Status records what happened to a run
type Status string

const (
	StatusImputed Status = "imputed"
	StatusSkipped Status = "skipped"
)

// Reason explains a skipped run
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonGapTooLong          Reason = "gap_too_long"
	ReasonInsufficientSupport Reason = "insufficient_support"
	ReasonFitFailed           Reason = "fit_failed"
)

// Policy holds the run-length thresholds and the spline neighbourhood size.
//
// Runs of length 1..LinearMaxLength are filled linearly, runs up to
// SplineMaxLength by a cubic spline, and anything longer is left missing.
type Policy struct {
	LinearMaxLength int `json:"linear_max_length"`
	SplineMaxLength int `json:"spline_max_length"`
	Neighborhood    int `json:"neighborhood"`
	MinSplinePoints int `json:"min_spline_points"`
}

// DefaultPolicy returns the thresholds used for the hourly plant data:
// 1-2 linear, 3-6 spline over up to 10 neighbours each side, 7+ skipped.
func DefaultPolicy() Policy {
	return Policy{
		LinearMaxLength: 2,
		SplineMaxLength: 6,
		Neighborhood:    10,
		MinSplinePoints: 4,
	}
}

// Validate checks the thresholds are ordered and usable
func (p Policy) Validate() error {
	if p.LinearMaxLength < 0 {
		return core.NewInvalidPolicyError("linear_max_length", "must be >= 0")
	}
	if p.SplineMaxLength < p.LinearMaxLength {
		return core.NewInvalidPolicyError("spline_max_length", "must be >= linear_max_length")
	}
	if p.SplineMaxLength > p.LinearMaxLength {
		if p.Neighborhood < 1 {
			return core.NewInvalidPolicyError("neighborhood", "must be >= 1")
		}
		// The not-a-knot spline needs four knots.
		if p.MinSplinePoints < 4 {
			return core.NewInvalidPolicyError("min_spline_points", "must be >= 4")
		}
		if p.MinSplinePoints > 2*p.Neighborhood {
			return core.NewInvalidPolicyError("min_spline_points", "cannot exceed twice the neighborhood")
		}
	}
	return nil
}

// Fingerprint identifies the thresholds, so stored jobs can be grouped by the
// policy that produced them
func (p Policy) Fingerprint() core.Hash {
	return core.ComputeHash(
		strconv.Itoa(p.LinearMaxLength),
		strconv.Itoa(p.SplineMaxLength),
		strconv.Itoa(p.Neighborhood),
		strconv.Itoa(p.MinSplinePoints),
	)
}

// Classify buckets a run length
func (p Policy) Classify(length int) GapClass {
	switch {
	case length <= p.LinearMaxLength:
		return GapShort
	case length <= p.SplineMaxLength:
		return GapMedium
	default:
		return GapLong
	}
}

// MethodFor selects the interpolation method for a run length
func (p Policy) MethodFor(length int) Method {
	switch p.Classify(length) {
	case GapShort:
		return MethodLinear
	case GapMedium:
		return MethodCubicSpline
	default:
		return MethodSkip
	}
}

// RunOutcome records the handling of one run
type RunOutcome struct {
	Run     series.Run `json:"run"`
	Class   GapClass   `json:"class"`
	Method  Method     `json:"method"`
	Status  Status     `json:"status"`
	Reason  Reason     `json:"reason,omitempty"`
	Support int        `json:"support"` // support points used by the fit
}

// Imputed reports whether the run's values were written back
func (o RunOutcome) Imputed() bool {
	return o.Status == StatusImputed
}

// ColumnReport summarises one column's pass through the engine
type ColumnReport struct {
	Column    string       `json:"column"`
	Length    int          `json:"length"`
	Missing   int          `json:"missing"`   // before imputation
	Imputed   int          `json:"imputed"`   // values filled
	Remaining int          `json:"remaining"` // still missing afterwards
	Outcomes  []RunOutcome `json:"outcomes"`
}

// SkippedRuns counts runs left missing
func (r ColumnReport) SkippedRuns() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Imputed() {
			n++
		}
	}
	return n
}

// CountBy counts outcomes with the given reason
func (r ColumnReport) CountBy(reason Reason) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Reason == reason {
			n++
		}
	}
	return n
}

// DatasetReport aggregates column reports for one imputation job
type DatasetReport struct {
	JobID      core.JobID     `json:"job_id"`
	Source     string         `json:"source"`
	Rows       int            `json:"rows"`
	PolicyHash core.Hash      `json:"policy_hash"`
	Columns    []ColumnReport `json:"columns"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

// Column returns the report for a column name
func (r *DatasetReport) Column(name string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnReport{}, false
}

// TotalImputed sums imputed values across columns
func (r *DatasetReport) TotalImputed() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Imputed
	}
	return n
}

// TotalRemaining sums values still missing across columns
func (r *DatasetReport) TotalRemaining() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Remaining
	}
	return n
}

// TotalSkippedRuns sums skipped runs across columns
func (r *DatasetReport) TotalSkippedRuns() int {
	n := 0
	for _, c := range r.Columns {
		n += c.SkippedRuns()
	}
	return n
}
