package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
)

// InMemoryImputationRepository implements ports.ImputationRepository with in-memory storage
type InMemoryImputationRepository struct {
	jobs     map[core.JobID]*imputation.Job
	outcomes map[core.JobID][]imputation.OutcomeRecord
	mu       sync.RWMutex
}

func NewInMemoryImputationRepository() *InMemoryImputationRepository {
	return &InMemoryImputationRepository{
		jobs:     make(map[core.JobID]*imputation.Job),
		outcomes: make(map[core.JobID][]imputation.OutcomeRecord),
	}
}

func (r *InMemoryImputationRepository) SaveReport(ctx context.Context, report *imputation.DatasetReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[report.JobID] = imputation.NewJob(report)
	r.outcomes[report.JobID] = imputation.OutcomeRecords(report)
	return nil
}

func (r *InMemoryImputationRepository) GetJob(ctx context.Context, id core.JobID) (*imputation.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (r *InMemoryImputationRepository) ListJobs(ctx context.Context, limit int) ([]*imputation.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*imputation.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	// Newest first, matching the Postgres repository
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *InMemoryImputationRepository) ListOutcomes(ctx context.Context, id core.JobID) ([]imputation.OutcomeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.jobs[id]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return append([]imputation.OutcomeRecord(nil), r.outcomes[id]...), nil
}
