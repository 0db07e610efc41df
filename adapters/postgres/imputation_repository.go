package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"
	"gapfill/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicateJob is returned when a report is saved twice
var ErrDuplicateJob = errors.New("imputation job already recorded")

// runColumns are the imputation_runs columns written by COPY, in order
var runColumns = []string{
	"job_id", "column_name", "run_start", "run_length",
	"gap_class", "method", "status", "reason", "support",
}

// runRow is the flat database shape of an outcome record
type runRow struct {
	JobID     core.JobID `db:"job_id"`
	Column    string     `db:"column_name"`
	RunStart  int        `db:"run_start"`
	RunLength int        `db:"run_length"`
	GapClass  string     `db:"gap_class"`
	Method    string     `db:"method"`
	Status    string     `db:"status"`
	Reason    string     `db:"reason"`
	Support   int        `db:"support"`
}

func (r runRow) record() imputation.OutcomeRecord {
	return imputation.OutcomeRecord{
		JobID:  r.JobID,
		Column: r.Column,
		RunOutcome: imputation.RunOutcome{
			Run:     series.Run{Start: r.RunStart, Length: r.RunLength},
			Class:   imputation.GapClass(r.GapClass),
			Method:  imputation.Method(r.Method),
			Status:  imputation.Status(r.Status),
			Reason:  imputation.Reason(r.Reason),
			Support: r.Support,
		},
	}
}

// copyArgs returns the COPY values for one record, matching runColumns
func copyArgs(rec imputation.OutcomeRecord) []interface{} {
	return []interface{}{
		rec.JobID.String(), rec.Column, rec.Run.Start, rec.Run.Length,
		string(rec.Class), string(rec.Method), string(rec.Status), string(rec.Reason), rec.Support,
	}
}

// ImputationRepositoryImpl implements ImputationRepository for PostgreSQL
type ImputationRepositoryImpl struct {
	db *sqlx.DB
}

// NewImputationRepository creates a new PostgreSQL imputation repository
func NewImputationRepository(db *sqlx.DB) ports.ImputationRepository {
	return &ImputationRepositoryImpl{db: db}
}

// SaveReport inserts the job row and bulk-copies its run outcomes in one transaction
func (r *ImputationRepositoryImpl) SaveReport(ctx context.Context, report *imputation.DatasetReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO imputation_jobs (
			id, source, row_count, column_count, imputed_values,
			remaining_values, skipped_runs, policy_hash, started_at, duration_ms
		) VALUES (
			:id, :source, :row_count, :column_count, :imputed_values,
			:remaining_values, :skipped_runs, :policy_hash, :started_at, :duration_ms
		)`, imputation.NewJob(report))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicateJob, report.JobID)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}

	records := imputation.OutcomeRecords(report)
	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("imputation_runs", runColumns...))
		if err != nil {
			return fmt.Errorf("failed to prepare run copy: %w", err)
		}
		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, copyArgs(rec)...); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to copy run %s@%d: %w", rec.Column, rec.Run.Start, err)
			}
		}
		// An argument-less Exec flushes the COPY buffer
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to flush run copy: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("failed to close run copy: %w", err)
		}
	}

	return tx.Commit()
}

// GetJob retrieves a job summary by ID
func (r *ImputationRepositoryImpl) GetJob(ctx context.Context, id core.JobID) (*imputation.Job, error) {
	var job imputation.Job
	err := r.db.GetContext(ctx, &job, `
		SELECT id, source, row_count, column_count, imputed_values,
		       remaining_values, skipped_runs, policy_hash, started_at, duration_ms
		FROM imputation_jobs
		WHERE id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs first
func (r *ImputationRepositoryImpl) ListJobs(ctx context.Context, limit int) ([]*imputation.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []*imputation.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT id, source, row_count, column_count, imputed_values,
		       remaining_values, skipped_runs, policy_hash, started_at, duration_ms
		FROM imputation_jobs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ListOutcomes returns a job's run outcomes ordered by column and position
func (r *ImputationRepositoryImpl) ListOutcomes(ctx context.Context, id core.JobID) ([]imputation.OutcomeRecord, error) {
	if _, err := r.GetJob(ctx, id); err != nil {
		return nil, err
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT job_id, column_name, run_start, run_length,
		       gap_class, method, status, reason, support
		FROM imputation_runs
		WHERE job_id = $1
		ORDER BY column_name, run_start
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}

	records := make([]imputation.OutcomeRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}
