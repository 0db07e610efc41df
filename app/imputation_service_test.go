package app

import (
	"context"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"
	"gapfill/internal/cleaning"
	"gapfill/internal/errors"
	"gapfill/internal/gapreport"
	"gapfill/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing
type MockImputationRepository struct {
	mock.Mock
}

func (m *MockImputationRepository) SaveReport(ctx context.Context, report *imputation.DatasetReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockImputationRepository) GetJob(ctx context.Context, id core.JobID) (*imputation.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*imputation.Job)
	return job, args.Error(1)
}

func (m *MockImputationRepository) ListJobs(ctx context.Context, limit int) ([]*imputation.Job, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*imputation.Job), args.Error(1)
}

func (m *MockImputationRepository) ListOutcomes(ctx context.Context, id core.JobID) ([]imputation.OutcomeRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]imputation.OutcomeRecord), args.Error(1)
}

func hourly(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func sameValues(t *testing.T, want, got []float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.Len(t, got, len(want), msgAndArgs...)
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), msgAndArgs...)
			continue
		}
		assert.Equal(t, want[i], got[i], msgAndArgs...)
	}
}

func TestImputeTable_FillsShortGaps(t *testing.T) {
	nan := math.NaN()
	table := &series.Table{
		TimeColumn: "DateTime",
		Timestamps: hourly(5),
		Columns: []series.Column{
			{Name: "flow", Values: []float64{5, nan, 7, nan, 9}},
			{Name: "site", Text: []string{"a", "b", "c", "d", "e"}},
		},
	}

	svc, err := NewImputationService(imputation.DefaultPolicy())
	require.NoError(t, err)

	out, report, err := svc.ImputeTable(context.Background(), "plant.csv", table)
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 6, 7, 8, 9}, out.Columns[0].Values)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, out.Columns[1].Text)
	assert.True(t, math.IsNaN(table.Columns[0].Values[1]), "input table is not mutated")

	assert.False(t, core.ID(report.JobID).IsEmpty())
	assert.Equal(t, "plant.csv", report.Source)
	assert.Equal(t, 5, report.Rows)
	require.Len(t, report.Columns, 1)
	assert.Equal(t, 2, report.TotalImputed())
	assert.Equal(t, 0, report.TotalRemaining())
}

func TestImputeTable_ParallelMatchesSequential(t *testing.T) {
	config := testkit.DefaultConfig()
	config.Rows = 24 * 14
	table := testkit.Generate(config)

	sequential, err := NewImputationService(imputation.DefaultPolicy(), WithWorkers(1))
	require.NoError(t, err)
	parallel, err := NewImputationService(imputation.DefaultPolicy(), WithWorkers(4))
	require.NoError(t, err)

	seqTable, seqReport, err := sequential.ImputeTable(context.Background(), "synthetic", table)
	require.NoError(t, err)
	parTable, parReport, err := parallel.ImputeTable(context.Background(), "synthetic", table)
	require.NoError(t, err)

	assert.Equal(t, seqReport.Columns, parReport.Columns)
	for i := range seqTable.Columns {
		sameValues(t, seqTable.Columns[i].Values, parTable.Columns[i].Values, seqTable.Columns[i].Name)
	}

	// Every column is reported and the per-column engine result matches.
	for _, name := range table.NumericColumns() {
		s, err := table.Series(name)
		require.NoError(t, err)
		want, wantReport, err := sequential.Engine().Impute(s)
		require.NoError(t, err)

		col, err := parTable.Column(name)
		require.NoError(t, err)
		sameValues(t, want.Values, col.Values, name)

		got, ok := parReport.Column(name)
		require.True(t, ok)
		assert.Equal(t, wantReport, got)
	}
}

func TestImputeTable_LeavesLongGaps(t *testing.T) {
	generator := testkit.NewHourlyDataGenerator(testkit.DefaultConfig())
	table := generator.Table()

	svc, err := NewImputationService(imputation.DefaultPolicy(), WithWorkers(2))
	require.NoError(t, err)
	out, report, err := svc.ImputeTable(context.Background(), "synthetic", table)
	require.NoError(t, err)

	for _, gap := range generator.InjectedGaps() {
		col, err := out.Column(gap.Column)
		require.NoError(t, err)
		for _, i := range gap.Run.Indices() {
			if gap.Run.Length > 6 {
				assert.True(t, series.IsMissing(col.Values[i]), "%s long gap at %d", gap.Column, i)
			} else {
				assert.False(t, series.IsMissing(col.Values[i]), "%s gap at %d", gap.Column, i)
			}
		}
	}

	for _, c := range report.Columns {
		assert.Equal(t, c.CountBy(imputation.ReasonGapTooLong), c.SkippedRuns(), c.Column)
	}
}

func TestImputeTable_PersistsReport(t *testing.T) {
	repo := new(MockImputationRepository)
	repo.On("SaveReport", mock.Anything, mock.AnythingOfType("*imputation.DatasetReport")).Return(nil)

	svc, err := NewImputationService(imputation.DefaultPolicy(), WithRepository(repo))
	require.NoError(t, err)

	_, report, err := svc.ImputeTable(context.Background(), "synthetic", testkit.Generate(testkit.DefaultConfig()))
	require.NoError(t, err)

	repo.AssertCalled(t, "SaveReport", mock.Anything, report)
	repo.AssertNumberOfCalls(t, "SaveReport", 1)
	assert.Equal(t, imputation.DefaultPolicy().Fingerprint(), report.PolicyHash)
}

func TestImputeTable_RepositoryFailure(t *testing.T) {
	repo := new(MockImputationRepository)
	repo.On("SaveReport", mock.Anything, mock.Anything).Return(stderrors.New("connection refused"))

	svc, err := NewImputationService(imputation.DefaultPolicy(), WithRepository(repo))
	require.NoError(t, err)

	_, _, err = svc.ImputeTable(context.Background(), "synthetic", testkit.Generate(testkit.DefaultConfig()))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestImputeTable_MalformedInput(t *testing.T) {
	repo := new(MockImputationRepository)
	svc, err := NewImputationService(imputation.DefaultPolicy(), WithRepository(repo))
	require.NoError(t, err)

	table := &series.Table{
		Timestamps: hourly(4),
		Columns:    []series.Column{{Name: "flow", Values: []float64{1, 2, 3}}},
	}
	_, _, err = svc.ImputeTable(context.Background(), "bad.csv", table)
	require.Error(t, err)
	assert.True(t, core.IsMalformedInput(err))
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	repo.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
}

func TestImputeTable_SentinelRules(t *testing.T) {
	rules, err := cleaning.ParseRules("flow<3.7")
	require.NoError(t, err)

	svc, err := NewImputationService(imputation.DefaultPolicy(), WithSentinelRules(rules))
	require.NoError(t, err)

	table := &series.Table{
		Timestamps: hourly(5),
		Columns:    []series.Column{{Name: "flow", Values: []float64{10, 1.2, 12, 13, 14}}},
	}
	out, report, err := svc.ImputeTable(context.Background(), "plant.csv", table)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11, 12, 13, 14}, out.Columns[0].Values)
	assert.Equal(t, 1, report.Columns[0].Missing)
	assert.Equal(t, 1.2, table.Columns[0].Values[1])
}

func TestPrepare_AppliesSentinelRules(t *testing.T) {
	rules, err := cleaning.ParseRules("Flow<3.7")
	require.NoError(t, err)
	svc, err := NewImputationService(imputation.DefaultPolicy(), WithSentinelRules(rules))
	require.NoError(t, err)

	table := &series.Table{
		Timestamps: hourly(7),
		Columns:    []series.Column{{Name: "Flow", Values: []float64{5, 6, 1, 8, 9, 10, 11}}},
	}
	prepared, err := svc.Prepare(table)
	require.NoError(t, err)
	assert.True(t, series.IsMissing(prepared.Columns[0].Values[2]))
	assert.Equal(t, 1.0, table.Columns[0].Values[2])

	again, err := svc.Prepare(prepared)
	require.NoError(t, err)
	sameValues(t, prepared.Columns[0].Values, again.Columns[0].Values)

	_, err = svc.Prepare(&series.Table{Timestamps: hourly(2), Columns: []series.Column{{Name: "Flow", Values: []float64{1}}}})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPrepare_ReportAgreesWithOutcomes(t *testing.T) {
	rules, err := cleaning.ParseRules("Flow<3.7")
	require.NoError(t, err)
	svc, err := NewImputationService(imputation.DefaultPolicy(), WithSentinelRules(rules))
	require.NoError(t, err)

	table := &series.Table{
		Timestamps: hourly(7),
		Columns:    []series.Column{{Name: "Flow", Values: []float64{5, 6, 1, 8, 9, 10, 11}}},
	}
	prepared, err := svc.Prepare(table)
	require.NoError(t, err)
	imputed, ds, err := svc.ImputeTable(context.Background(), "plant.csv", prepared)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Columns[0].Missing)
	assert.Equal(t, 1, ds.Columns[0].Imputed)

	report, err := gapreport.Build(prepared, imputed, ds, svc.Engine().Policy())
	require.NoError(t, err)
	s := report.Columns[0].Summary
	assert.Equal(t, ds.Columns[0].Missing, s.MissingBefore)
	assert.Equal(t, 1, s.Runs)
	assert.Equal(t, 0, s.MissingAfter)
	assert.Equal(t, 5.0, s.Before.Min)
	assert.Equal(t, 6, s.Before.Count)
}

func TestImputeTable_ContextCancelled(t *testing.T) {
	svc, err := NewImputationService(imputation.DefaultPolicy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = svc.ImputeTable(ctx, "synthetic", testkit.Generate(testkit.DefaultConfig()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImputeSeries(t *testing.T) {
	svc, err := NewImputationService(imputation.DefaultPolicy())
	require.NoError(t, err)

	nan := math.NaN()
	out, report, err := svc.ImputeSeries(context.Background(), series.New("flow", nil, []float64{4, nan, nan, 10}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 6, 8, 10}, out.Values, 1e-12)
	assert.Equal(t, 2, report.Imputed)

	_, _, err = svc.ImputeSeries(context.Background(), series.New("flow", hourly(2), []float64{4, nan, 10}))
	assert.ErrorIs(t, err, core.ErrLengthMismatch)
}

func TestImputeSeriesTraced(t *testing.T) {
	svc, err := NewImputationService(imputation.DefaultPolicy())
	require.NoError(t, err)

	nan := math.NaN()
	in := series.New("gauge", nil, []float64{1, 2, 3, 4, nan, nan, nan, 8, 9, 10, 11})
	out, report, traces, err := svc.ImputeSeriesTraced(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imputed)
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, out.Values, 1e-9)
	require.Len(t, traces, 1)
	assert.Equal(t, series.Run{Start: 4, Length: 3}, traces[0].Run)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = svc.ImputeSeriesTraced(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewImputationService_InvalidPolicy(t *testing.T) {
	_, err := NewImputationService(imputation.Policy{LinearMaxLength: 3, SplineMaxLength: 2})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestGetJob(t *testing.T) {
	svc, err := NewImputationService(imputation.DefaultPolicy())
	require.NoError(t, err)
	_, err = svc.GetJob(context.Background(), core.NewJobID())
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))

	repo := new(MockImputationRepository)
	id := core.NewJobID()
	repo.On("GetJob", mock.Anything, id).Return(nil, core.ErrJobNotFound)
	svc, err = NewImputationService(imputation.DefaultPolicy(), WithRepository(repo))
	require.NoError(t, err)

	_, err = svc.GetJob(context.Background(), id)
	assert.ErrorIs(t, err, core.ErrJobNotFound)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
