package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"gapfill/app"
	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"
	"gapfill/internal"
	"gapfill/internal/errors"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 8 << 20

// Server exposes the imputation service over JSON
type Server struct {
	router  *gin.Engine
	service *app.ImputationService
	logger  *internal.Logger
}

// NewServer creates a server and registers its routes
func NewServer(service *app.ImputationService, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  gin.New(),
		service: service,
		logger:  logger.WithComponent("API"),
	}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.setupRoutes()
	return s
}

// Router returns the underlying gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start listens on addr until the server fails
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/impute", s.impute)
		v1.POST("/scan", s.scan)
		v1.GET("/jobs", s.listJobs)
		v1.GET("/jobs/:id", s.getJob)
		v1.GET("/jobs/:id/outcomes", s.listOutcomes)
	}
}

func (s *Server) health(c *gin.Context) {
	policy := s.service.Engine().Policy()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "policy": policy})
}

// impute fills a single series. ?trace=true adds the fitted curve of every
// imputed run to the response.
func (s *Server) impute(c *gin.Context) {
	in, ok := s.readSeries(c)
	if !ok {
		return
	}

	if c.Query("trace") == "true" {
		out, report, traces, err := s.service.ImputeSeriesTraced(c.Request.Context(), in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ImputeResponse{Name: out.Name, Values: nullable(out.Values), Report: report, Traces: traces})
		return
	}

	out, report, err := s.service.ImputeSeries(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ImputeResponse{Name: out.Name, Values: nullable(out.Values), Report: report})
}

// scan reports the runs of a series and how policy would treat each one
// without filling anything
func (s *Server) scan(c *gin.Context) {
	in, ok := s.readSeries(c)
	if !ok {
		return
	}
	if err := in.Validate(); err != nil {
		s.respondError(c, errors.Wrap(err, "invalid series"))
		return
	}
	c.JSON(http.StatusOK, scanResponse(in, s.service.Engine().Policy()))
}

func (s *Server) listJobs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(c, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	jobs, err := s.service.ListJobs(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if jobs == nil {
		jobs = []*imputation.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) getJob(c *gin.Context) {
	id, ok := s.jobID(c)
	if !ok {
		return
	}
	job, err := s.service.GetJob(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) listOutcomes(c *gin.Context) {
	id, ok := s.jobID(c)
	if !ok {
		return
	}
	records, err := s.service.ListOutcomes(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if records == nil {
		records = []imputation.OutcomeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id, "outcomes": records})
}

func (s *Server) jobID(c *gin.Context) (core.JobID, bool) {
	id, err := core.ParseJobID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

func (s *Server) readSeries(c *gin.Context) (series.Series, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.respondError(c, errors.PayloadTooLarge(tooLarge.Limit))
			return series.Series{}, false
		}
		s.respondError(c, errors.InvalidInput("could not read request body"))
		return series.Series{}, false
	}
	in, err := ParseSeriesRequest(body)
	if err != nil {
		s.respondError(c, err)
		return series.Series{}, false
	}
	return in, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
