package app

import (
	"context"
	"fmt"
	"time"

	"gapfill/adapters/stats/gapfill"
	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"
	"gapfill/internal"
	"gapfill/internal/cleaning"
	"gapfill/internal/errors"
	"gapfill/ports"

	"golang.org/x/sync/errgroup"
)

// ImputationService fills gaps across every numeric column of a table
type ImputationService struct {
	engine  *gapfill.Engine
	repo    ports.ImputationRepository
	rules   []cleaning.Rule
	workers int
	logger  *internal.Logger
}

// ServiceOption configures an ImputationService
type ServiceOption func(*ImputationService)

// WithRepository persists every dataset report through repo
func WithRepository(repo ports.ImputationRepository) ServiceOption {
	return func(s *ImputationService) { s.repo = repo }
}

// WithSentinelRules flags out-of-range readings as missing before imputation
func WithSentinelRules(rules []cleaning.Rule) ServiceOption {
	return func(s *ImputationService) { s.rules = rules }
}

// WithWorkers bounds how many columns are imputed concurrently
func WithWorkers(n int) ServiceOption {
	return func(s *ImputationService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger replaces the default logger
func WithLogger(logger *internal.Logger) ServiceOption {
	return func(s *ImputationService) { s.logger = logger }
}

// NewImputationService creates a service for the given policy
func NewImputationService(policy imputation.Policy, opts ...ServiceOption) (*ImputationService, error) {
	engine, err := gapfill.NewEngine(policy)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	s := &ImputationService{
		engine:  engine,
		workers: 1,
		logger:  internal.DefaultLogger.WithComponent("Imputation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Engine exposes the underlying engine for single-run tracing
func (s *ImputationService) Engine() *gapfill.Engine {
	return s.engine
}

// ImputeSeries fills one series and returns the filled copy
func (s *ImputationService) ImputeSeries(ctx context.Context, in series.Series) (series.Series, imputation.ColumnReport, error) {
	if err := ctx.Err(); err != nil {
		return series.Series{}, imputation.ColumnReport{}, err
	}
	out, report, err := s.engine.Impute(in)
	if err != nil {
		return series.Series{}, imputation.ColumnReport{}, errors.Wrapf(err, "impute %s", in.Name)
	}
	s.logColumn(report)
	return out, report, nil
}

// ImputeSeriesTraced is ImputeSeries plus the fitted curve of every filled run
func (s *ImputationService) ImputeSeriesTraced(ctx context.Context, in series.Series) (series.Series, imputation.ColumnReport, []gapfill.Trace, error) {
	if err := ctx.Err(); err != nil {
		return series.Series{}, imputation.ColumnReport{}, nil, err
	}
	out, report, traces, err := s.engine.ImputeTraced(in)
	if err != nil {
		return series.Series{}, imputation.ColumnReport{}, nil, errors.Wrapf(err, "impute %s", in.Name)
	}
	s.logColumn(report)
	return out, report, traces, nil
}

// Prepare validates table and returns a copy with the sentinel rules
// applied: the readings exactly as the engine will see them. Preparing an
// already prepared table changes nothing.
func (s *ImputationService) Prepare(table *series.Table) (*series.Table, error) {
	if err := table.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid table")
	}
	out := table.Clone()
	if len(s.rules) > 0 {
		summary, err := cleaning.Apply(out, s.rules)
		if err != nil {
			return nil, errors.Wrap(err, "sentinel pre-pass")
		}
		for column, n := range summary.Flagged {
			s.logger.Info("flagged %d readings in %s as missing", n, column)
		}
	}
	return out, nil
}

// ImputeTable fills every numeric column of table. The input is never mutated;
// the returned table is a copy with gaps filled where policy allows.
func (s *ImputationService) ImputeTable(ctx context.Context, source string, table *series.Table) (*series.Table, *imputation.DatasetReport, error) {
	startedAt := time.Now()

	out, err := s.Prepare(table)
	if err != nil {
		return nil, nil, err
	}

	names := out.NumericColumns()
	reports := make([]imputation.ColumnReport, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		col, err := out.Column(name)
		if err != nil {
			return nil, nil, err
		}
		// Each column buffer belongs to exactly one goroutine.
		values := col.Values
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.engine.ImputeInPlace(name, values)
			if err != nil {
				return errors.Wrapf(err, "impute column %s", name)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report := &imputation.DatasetReport{
		JobID:      core.NewJobID(),
		Source:     source,
		Rows:       out.Rows(),
		PolicyHash: s.engine.Policy().Fingerprint(),
		Columns:    reports,
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt),
	}
	for _, r := range reports {
		s.logColumn(r)
	}
	s.logger.Info("job %s: %d values imputed, %d remaining, %d runs skipped across %d columns",
		report.JobID, report.TotalImputed(), report.TotalRemaining(), report.TotalSkippedRuns(), len(reports))

	if s.repo != nil {
		if err := s.repo.SaveReport(ctx, report); err != nil {
			return nil, nil, errors.DatabaseError(fmt.Sprintf("save job %s", report.JobID), err)
		}
	}
	return out, report, nil
}

// GetJob loads a persisted job summary
func (s *ImputationService) GetJob(ctx context.Context, id core.JobID) (*imputation.Job, error) {
	if s.repo == nil {
		return nil, errors.Unavailable("no imputation repository configured")
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first
func (s *ImputationService) ListJobs(ctx context.Context, limit int) ([]*imputation.Job, error) {
	if s.repo == nil {
		return nil, errors.Unavailable("no imputation repository configured")
	}
	if limit <= 0 {
		limit = 50
	}
	jobs, err := s.repo.ListJobs(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	return jobs, nil
}

// ListOutcomes loads the run outcomes stored for a job
func (s *ImputationService) ListOutcomes(ctx context.Context, id core.JobID) ([]imputation.OutcomeRecord, error) {
	if s.repo == nil {
		return nil, errors.Unavailable("no imputation repository configured")
	}
	records, err := s.repo.ListOutcomes(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list outcomes for %s", id)
	}
	return records, nil
}

func (s *ImputationService) logColumn(r imputation.ColumnReport) {
	s.logger.Debug("%s: %d missing, %d imputed, %d remaining", r.Column, r.Missing, r.Imputed, r.Remaining)
	for _, o := range r.Outcomes {
		if o.Imputed() {
			s.logger.Trace("%s: run [%d,%d] %s filled", r.Column, o.Run.Start, o.Run.End(), o.Method)
			continue
		}
		s.logger.Trace("%s: run [%d,%d] skipped (%s)", r.Column, o.Run.Start, o.Run.End(), o.Reason)
	}
}
