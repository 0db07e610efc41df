package testkit

import (
	"context"
	"testing"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourlyDataGenerator_Basic(t *testing.T) {
	config := DefaultConfig()
	config.Rows = 24 * 7

	generator := NewHourlyDataGenerator(config)
	table := generator.Table()

	require.NoError(t, table.Validate())
	assert.Equal(t, config.Rows, table.Rows())
	assert.Equal(t, []string{ColumnFlow, ColumnRainfall, ColumnGroundwater, ColumnGauge}, table.NumericColumns())
	assert.Equal(t, time.Hour, table.Timestamps[1].Sub(table.Timestamps[0]))
	assert.NotEmpty(t, generator.InjectedGaps())
}

func TestHourlyDataGenerator_GapsMatchMissingValues(t *testing.T) {
	generator := NewHourlyDataGenerator(DefaultConfig())
	table := generator.Table()

	injected := make(map[string]int)
	for _, gap := range generator.InjectedGaps() {
		assert.Greater(t, gap.Run.Start, 0, "gaps never start at the first row")
		assert.Less(t, gap.Run.End(), table.Rows()-1, "gaps never reach the last row")
		injected[gap.Column] += gap.Run.Length
	}

	for _, name := range table.NumericColumns() {
		s, err := table.Series(name)
		require.NoError(t, err)
		assert.Equal(t, injected[name], s.MissingCount(), name)
	}
}

func TestHourlyDataGenerator_Deterministic(t *testing.T) {
	a := Generate(DefaultConfig())
	b := Generate(DefaultConfig())

	for i := range a.Columns {
		for j, v := range a.Columns[i].Values {
			w := b.Columns[i].Values[j]
			if series.IsMissing(v) {
				assert.True(t, series.IsMissing(w))
				continue
			}
			assert.Equal(t, v, w)
		}
	}
}

func TestInMemoryImputationRepository(t *testing.T) {
	repo := NewInMemoryImputationRepository()
	ctx := context.Background()

	older := &imputation.DatasetReport{
		JobID:     core.NewJobID(),
		Source:    "a.csv",
		Rows:      10,
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &imputation.DatasetReport{
		JobID:     core.NewJobID(),
		Source:    "b.csv",
		Rows:      10,
		StartedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Columns: []imputation.ColumnReport{{
			Column: "flow",
			Outcomes: []imputation.RunOutcome{
				{Run: series.Run{Start: 3, Length: 1}, Method: imputation.MethodLinear, Status: imputation.StatusImputed},
			},
		}},
	}
	require.NoError(t, repo.SaveReport(ctx, older))
	require.NoError(t, repo.SaveReport(ctx, newer))

	jobs, err := repo.ListJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, newer.JobID, jobs[0].ID)

	outcomes, err := repo.ListOutcomes(ctx, newer.JobID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "flow", outcomes[0].Column)

	_, err = repo.GetJob(ctx, core.NewJobID())
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}
