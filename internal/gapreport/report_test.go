package gapreport

import (
	"math"
	"strings"
	"testing"
	"time"

	"gapfill/adapters/stats/gapfill"
	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func hourly(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// fixture: a leading gap, a single gap, a four-hour gap and a long gap
func fixture(t *testing.T) (*series.Table, *series.Table, *imputation.DatasetReport) {
	t.Helper()
	values := []float64{
		nan, 1, 2, nan, 4, 5, 6, 7, 8, nan, nan, nan, nan, 13, 14, 15, 16,
		nan, nan, nan, nan, nan, nan, nan, nan, 25, 26,
	}
	original := &series.Table{
		TimeColumn: "DateTime",
		Timestamps: hourly(len(values)),
		Columns:    []series.Column{{Name: "flow", Values: values}},
	}

	engine, err := gapfill.NewEngine(imputation.DefaultPolicy())
	require.NoError(t, err)
	s, err := original.Series("flow")
	require.NoError(t, err)
	out, cr, err := engine.Impute(s)
	require.NoError(t, err)

	imputed := original.Clone()
	imputed.Columns[0].Values = out.Values
	return original, imputed, &imputation.DatasetReport{
		Source:  "plant.csv",
		Rows:    len(values),
		Columns: []imputation.ColumnReport{cr},
	}
}

func TestSpans(t *testing.T) {
	original, _, ds := fixture(t)
	spans := Spans(original.Timestamps, ds.Columns[0].Outcomes)
	require.Len(t, spans, 4)

	// leading run clamps to the first timestamp
	assert.Equal(t, original.Timestamps[0], spans[0].From)
	assert.Equal(t, original.Timestamps[1], spans[0].To)
	assert.Equal(t, imputation.ReasonInsufficientSupport, spans[0].Reason)

	// interior runs span last valid -> next valid
	assert.Equal(t, original.Timestamps[2], spans[1].From)
	assert.Equal(t, original.Timestamps[4], spans[1].To)
	assert.Equal(t, imputation.StatusImputed, spans[1].Status)

	assert.Equal(t, 4, spans[2].Hours())
	assert.Equal(t, imputation.GapMedium, spans[2].Class)

	assert.Equal(t, imputation.GapLong, spans[3].Class)
	assert.Equal(t, original.Timestamps[16], spans[3].From)
	assert.Equal(t, original.Timestamps[25], spans[3].To)
}

func TestSpans_WithoutTimestamps(t *testing.T) {
	spans := Spans(nil, []imputation.RunOutcome{{Run: series.Run{Start: 2, Length: 1}}})
	require.Len(t, spans, 1)
	assert.True(t, spans[0].From.IsZero())
}

func TestSummarize(t *testing.T) {
	original, imputed, ds := fixture(t)
	s := Summarize("flow", original.Columns[0].Values, imputed.Columns[0].Values, ds.Columns[0])

	assert.Equal(t, 27, s.Rows)
	assert.Equal(t, 14, s.MissingBefore)
	assert.Equal(t, 9, s.MissingAfter, "leading and long runs remain")
	assert.InDelta(t, 14.0/27.0, s.MissingRate, 1e-12)
	assert.Equal(t, 4, s.Runs)
	assert.InDelta(t, 3.5, s.RunLengthMean, 1e-12)
	assert.InDelta(t, 2.5, s.RunLengthMedian, 1e-12)
	assert.Equal(t, 8, s.RunLengthMax)
	assert.Equal(t, 2, s.ByClass[imputation.GapShort])
	assert.Equal(t, 1, s.ByClass[imputation.GapMedium])
	assert.Equal(t, 1, s.ByClass[imputation.GapLong])
	assert.Equal(t, 13, s.Before.Count)
	assert.Equal(t, 18, s.After.Count)
	assert.Equal(t, 1.0, s.Before.Min)
	assert.Equal(t, 26.0, s.Before.Max)
}

func TestSummarize_AllMissing(t *testing.T) {
	s := Summarize("empty", []float64{nan, nan, nan}, nil, imputation.ColumnReport{})
	assert.Equal(t, 0, s.Before.Count)
	assert.Equal(t, 0.0, s.Before.Mean)
	assert.Equal(t, 3, s.MissingAfter)
	assert.Equal(t, 1.0, s.MissingRate)
}

func TestRenderMarkdownAndHTML(t *testing.T) {
	original, imputed, ds := fixture(t)
	report, err := Build(original, imputed, ds, imputation.DefaultPolicy())
	require.NoError(t, err)

	md := string(RenderMarkdown(report))
	assert.True(t, strings.HasPrefix(md, "# Gap report: plant.csv"))
	assert.Contains(t, md, "## flow")
	assert.Contains(t, md, "| 2024-01-01 02:00 | 2024-01-01 04:00 | 1 | short | linear | imputed (2 points) |")
	assert.Contains(t, md, "skipped: gap too long")
	assert.Contains(t, md, "**5** values imputed")

	html := string(RenderHTML(report))
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>short</td>")

	section, ok := report.Section("flow")
	require.True(t, ok)
	assert.Contains(t, string(RenderColumnMarkdown(section)), "| Runs | 4 (short 2, medium 1, long 1) |")

	_, ok = report.Section("rain")
	assert.False(t, ok)
}

func TestBuild_UnknownColumn(t *testing.T) {
	original, _, ds := fixture(t)
	ds.Columns[0].Column = "rain"
	_, err := Build(original, nil, ds, imputation.DefaultPolicy())
	assert.Error(t, err)
}
