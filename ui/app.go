package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gapfill/domain/imputation"
	"gapfill/internal"
	"gapfill/internal/gapreport"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App serves a read-only view of one gap report
type App struct {
	router    *chi.Mux
	report    *gapreport.Report
	templates *template.Template
	logger    *internal.Logger
	config    Config
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a viewer for report
func NewApp(config Config, report *gapreport.Report) (*App, error) {
	if report == nil {
		return nil, fmt.Errorf("gap report is required")
	}
	if config.Port == "" {
		config.Port = "8081"
	}

	funcMap := template.FuncMap{
		"pct":        func(rate float64) string { return fmt.Sprintf("%.1f%%", 100*rate) },
		"columnPath": func(name string) string { return "/columns/" + url.PathEscape(name) },
		"classCount": func(s gapreport.Summary, class string) int {
			return s.ByClass[imputation.GapClass(class)]
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		report:    report,
		templates: templates,
		logger:    internal.DefaultLogger.WithComponent("UI"),
		config:    config,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/report.md", a.handleReportMarkdown)
	a.router.Get("/columns/{name}", a.handleColumn)
	a.router.Get("/columns/{name}/report.md", a.handleColumnMarkdown)
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler returns the router for embedding or tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.config.Port
	a.logger.Info("serving gap report for %s on %s", a.report.Source, addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("template %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
