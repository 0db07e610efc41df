package ui

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"gapfill/internal/gapreport"
)

type indexPage struct {
	Report *gapreport.Report
}

type columnPage struct {
	Source  string
	Section gapreport.ColumnSection
	Body    template.HTML
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, "index.html", indexPage{Report: a.report})
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	writeMarkdown(w, gapreport.RenderMarkdown(a.report))
}

func (a *App) handleColumn(w http.ResponseWriter, r *http.Request) {
	section, ok := a.section(w, r)
	if !ok {
		return
	}
	body := gapreport.ToHTML(gapreport.RenderColumnMarkdown(section))
	a.renderTemplate(w, "column.html", columnPage{
		Source:  a.report.Source,
		Section: section,
		Body:    template.HTML(body),
	})
}

func (a *App) handleColumnMarkdown(w http.ResponseWriter, r *http.Request) {
	section, ok := a.section(w, r)
	if !ok {
		return
	}
	writeMarkdown(w, gapreport.RenderColumnMarkdown(section))
}

// section resolves the {name} parameter, answering 404 for unknown columns
func (a *App) section(w http.ResponseWriter, r *http.Request) (gapreport.ColumnSection, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid column name", http.StatusBadRequest)
		return gapreport.ColumnSection{}, false
	}
	section, ok := a.report.Section(name)
	if !ok {
		http.Error(w, "column not found", http.StatusNotFound)
		return gapreport.ColumnSection{}, false
	}
	return section, true
}

func writeMarkdown(w http.ResponseWriter, md []byte) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(md)
}
