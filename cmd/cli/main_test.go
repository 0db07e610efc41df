package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gapfill/adapters/excel"
	"gapfill/domain/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SENTINEL_RULES", "")
	t.Setenv("INPUT_FILE", "")
	t.Setenv("REGULARIZE_HOURLY", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateImputeGaps(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.csv")
	imputed := filepath.Join(dir, "imputed.xlsx")
	report := filepath.Join(dir, "gaps.html")

	out, err := execute(t, "generate", "--output", sample, "--rows", "240", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 240 rows")

	out, err = execute(t, "impute", "--input", sample, "--output", imputed, "--report", report, "--workers", "2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imputed "+sample)
	assert.Contains(t, out, "Report written to "+report)

	before, err := excel.NewDataReader(sample).ReadTable()
	require.NoError(t, err)
	after, err := excel.NewDataReader(imputed).ReadTable()
	require.NoError(t, err)
	require.Equal(t, before.Rows(), after.Rows())
	for _, name := range before.NumericColumns() {
		b, err := before.Column(name)
		require.NoError(t, err)
		a, err := after.Column(name)
		require.NoError(t, err)
		assert.LessOrEqual(t, series.CountMissing(a.Values), series.CountMissing(b.Values), name)
	}

	html, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")

	out, err = execute(t, "gaps", "--input", sample, "--column", before.NumericColumns()[0], "--regularize")
	require.NoError(t, err)
	assert.Contains(t, out, "Regularized 240 rows to 240 hourly rows (0 inserted, 0 merged)")
	assert.Contains(t, out, before.NumericColumns()[0]+":")
}

func TestImpute_RequiresInput(t *testing.T) {
	_, err := execute(t, "impute")
	assert.Error(t, err)
}

func TestGaps_UnknownColumn(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.csv")
	_, err := execute(t, "generate", "--output", sample, "--rows", "48")
	require.NoError(t, err)

	_, err = execute(t, "gaps", "--input", sample, "--column", "nope")
	assert.Error(t, err)
}

func writeFlowCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "flow.csv")
	rows := []string{"DateTime,Flow"}
	for i, v := range []string{"5", "6", "1", "8", "9", "10", "11", "12"} {
		rows = append(rows, fmt.Sprintf("2024-01-01 %02d:00:00,%s", i, v))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return path
}

func TestGaps_SentinelRules(t *testing.T) {
	input := writeFlowCSV(t, t.TempDir())

	out, err := execute(t, "gaps", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Flow: 0 runs")

	out, err = execute(t, "gaps", "--input", input, "--rules", "Flow<3.7")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow: 1 runs")
	assert.Contains(t, out, "2024-01-01 01:00:00 .. 2024-01-01 03:00:00")
	assert.Contains(t, out, "linear")
}

func TestImpute_SentinelRulesInReport(t *testing.T) {
	dir := t.TempDir()
	input := writeFlowCSV(t, dir)
	report := filepath.Join(dir, "gaps.md")

	out, err := execute(t, "impute", "--input", input, "--output", filepath.Join(dir, "out.csv"),
		"--report", report, "--rules", "Flow<3.7")
	require.NoError(t, err, out)

	md, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(md), "| Missing before | 1 (12.5%) |")
	assert.Contains(t, string(md), "| Missing after | 0 |")
	assert.Contains(t, string(md), "| Runs | 1 (short 1, medium 0, long 0) |")
}
