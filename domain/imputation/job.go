package imputation

import (
	"time"

	"gapfill/domain/core"
)

// Job is the persisted summary of one imputation run over a dataset
type Job struct {
	ID              core.JobID `json:"id" db:"id"`
	Source          string     `json:"source" db:"source"`
	Rows            int        `json:"rows" db:"row_count"`
	Columns         int        `json:"columns" db:"column_count"`
	ImputedValues   int        `json:"imputed_values" db:"imputed_values"`
	RemainingValues int        `json:"remaining_values" db:"remaining_values"`
	SkippedRuns     int        `json:"skipped_runs" db:"skipped_runs"`
	PolicyHash      core.Hash  `json:"policy_hash" db:"policy_hash"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	DurationMs      int64      `json:"duration_ms" db:"duration_ms"`
}

// OutcomeRecord is one run outcome tagged with its column, as stored
type OutcomeRecord struct {
	JobID  core.JobID `json:"job_id"`
	Column string     `json:"column"`
	RunOutcome
}

// NewJob summarises a dataset report for persistence
func NewJob(report *DatasetReport) *Job {
	return &Job{
		ID:              report.JobID,
		Source:          report.Source,
		Rows:            report.Rows,
		Columns:         len(report.Columns),
		ImputedValues:   report.TotalImputed(),
		RemainingValues: report.TotalRemaining(),
		SkippedRuns:     report.TotalSkippedRuns(),
		PolicyHash:      report.PolicyHash,
		StartedAt:       report.StartedAt,
		DurationMs:      report.Duration.Milliseconds(),
	}
}

// OutcomeRecords flattens a report's outcomes in column order
func OutcomeRecords(report *DatasetReport) []OutcomeRecord {
	var records []OutcomeRecord
	for _, c := range report.Columns {
		for _, o := range c.Outcomes {
			records = append(records, OutcomeRecord{JobID: report.JobID, Column: c.Column, RunOutcome: o})
		}
	}
	return records
}
