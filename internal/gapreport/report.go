package gapreport

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ColumnSection is the report for one column
type ColumnSection struct {
	Summary Summary `json:"summary"`
	Spans   []Span  `json:"spans"`
}

// Report is a renderable gap report for a dataset
type Report struct {
	Source    string            `json:"source"`
	StartedAt time.Time         `json:"started_at"`
	Policy    imputation.Policy `json:"policy"`
	Columns   []ColumnSection   `json:"columns"`
	Totals    imputation.Job    `json:"totals"`
}

// Build assembles a report from the original table, the imputed table and
// the dataset report produced for it. imputed may be nil for a scan-only report.
func Build(original, imputed *series.Table, ds *imputation.DatasetReport, policy imputation.Policy) (*Report, error) {
	r := &Report{
		Source:    ds.Source,
		StartedAt: ds.StartedAt,
		Policy:    policy,
		Totals:    *imputation.NewJob(ds),
	}
	for _, cr := range ds.Columns {
		before, err := original.Column(cr.Column)
		if err != nil {
			return nil, err
		}
		var after []float64
		if imputed != nil {
			col, err := imputed.Column(cr.Column)
			if err != nil {
				return nil, err
			}
			after = col.Values
		}
		r.Columns = append(r.Columns, ColumnSection{
			Summary: Summarize(cr.Column, before.Values, after, cr),
			Spans:   Spans(original.Timestamps, cr.Outcomes),
		})
	}
	return r, nil
}

// Section returns the section for a column name
func (r *Report) Section(column string) (ColumnSection, bool) {
	for _, c := range r.Columns {
		if c.Summary.Column == column {
			return c, true
		}
	}
	return ColumnSection{}, false
}

const timeLayout = "2006-01-02 15:04"

// RenderMarkdown writes the whole report as Markdown
func RenderMarkdown(r *Report) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Gap report: %s\n\n", r.Source)
	fmt.Fprintf(&b, "Linear fill up to %d hours, cubic spline up to %d hours over %d neighbours per side; longer gaps are left missing.\n\n",
		r.Policy.LinearMaxLength, r.Policy.SplineMaxLength, r.Policy.Neighborhood)
	fmt.Fprintf(&b, "**%d** values imputed, **%d** still missing, **%d** runs skipped across %d columns and %d rows.\n\n",
		r.Totals.ImputedValues, r.Totals.RemainingValues, r.Totals.SkippedRuns, r.Totals.Columns, r.Totals.Rows)
	for _, c := range r.Columns {
		writeColumn(&b, c)
	}
	return b.Bytes()
}

// RenderColumnMarkdown writes a single column section as Markdown
func RenderColumnMarkdown(c ColumnSection) []byte {
	var b bytes.Buffer
	writeColumn(&b, c)
	return b.Bytes()
}

func writeColumn(b *bytes.Buffer, c ColumnSection) {
	s := c.Summary
	fmt.Fprintf(b, "## %s\n\n", s.Column)
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Rows | %d |\n", s.Rows)
	fmt.Fprintf(b, "| Missing before | %d (%.1f%%) |\n", s.MissingBefore, 100*s.MissingRate)
	fmt.Fprintf(b, "| Missing after | %d |\n", s.MissingAfter)
	fmt.Fprintf(b, "| Runs | %d (short %d, medium %d, long %d) |\n", s.Runs,
		s.ByClass[imputation.GapShort], s.ByClass[imputation.GapMedium], s.ByClass[imputation.GapLong])
	fmt.Fprintf(b, "| Run length mean / median / max | %.2f / %.1f / %d |\n", s.RunLengthMean, s.RunLengthMedian, s.RunLengthMax)
	fmt.Fprintf(b, "| Mean before / after | %.4g / %.4g |\n", s.Before.Mean, s.After.Mean)
	fmt.Fprintf(b, "| Std dev before / after | %.4g / %.4g |\n\n", s.Before.StdDev, s.After.StdDev)

	if len(c.Spans) == 0 {
		b.WriteString("No gaps.\n\n")
		return
	}
	b.WriteString("| From | To | Hours | Class | Method | Outcome |\n|---|---|---|---|---|---|\n")
	for _, sp := range c.Spans {
		fmt.Fprintf(b, "| %s | %s | %d | %s | %s | %s |\n",
			formatTime(sp.From, sp.Run.Start-1), formatTime(sp.To, sp.Run.End()+1),
			sp.Hours(), sp.Class, sp.Method, outcomeLabel(sp))
	}
	b.WriteString("\n")
}

func formatTime(t time.Time, index int) string {
	if t.IsZero() {
		return fmt.Sprintf("#%d", index)
	}
	return t.Format(timeLayout)
}

func outcomeLabel(sp Span) string {
	if sp.Status == imputation.StatusImputed {
		return fmt.Sprintf("imputed (%d points)", sp.Support)
	}
	return "skipped: " + strings.ReplaceAll(string(sp.Reason), "_", " ")
}

// RenderHTML renders the whole report as an HTML fragment
func RenderHTML(r *Report) []byte {
	return ToHTML(RenderMarkdown(r))
}

// ToHTML converts Markdown to an HTML fragment. Raw HTML in the input,
// such as a column header containing markup, is dropped.
func ToHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return markdown.ToHTML(md, p, renderer)
}
