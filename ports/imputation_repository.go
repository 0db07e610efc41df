package ports

import (
	"context"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
)

// ImputationRepository stores an audit trail of imputation jobs
type ImputationRepository interface {
	// SaveReport persists the job summary and every run outcome atomically
	SaveReport(ctx context.Context, report *imputation.DatasetReport) error
	GetJob(ctx context.Context, id core.JobID) (*imputation.Job, error)
	ListJobs(ctx context.Context, limit int) ([]*imputation.Job, error)
	ListOutcomes(ctx context.Context, id core.JobID) ([]imputation.OutcomeRecord, error)
}
