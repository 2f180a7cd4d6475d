// Package api exposes the interview scoring engine and the applicant
// directory over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"recruiting-pipeline/internal/common/config"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/interview"
	"recruiting-pipeline/internal/models"
)

const tracerName = "recruiting-pipeline/internal/api"

type StageSubmitter interface {
	SubmitStage(ctx context.Context, applicantID, stageID string, payload map[string]interface{}) (*interview.SubmitResult, error)
}

type QuestionPatcher interface {
	PatchQuestionText(ctx context.Context, applicantID, stageID string, texts []string) (*interview.PatchResult, error)
}

type ApplicantDirectory interface {
	List(ctx context.Context, limit int, cursor string) (*models.ApplicantPage, error)
	Get(ctx context.Context, id string) (*models.Applicant, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.StatusChange, error)
	Apply(ctx context.Context, app models.Application) (*models.Applicant, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	cfg       config.ServerConfig
	engine    StageSubmitter
	patcher   QuestionPatcher
	directory ApplicantDirectory
	checks    map[string]ReadinessCheck
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Server)

// WithReadinessCheck adds a named dependency check to /ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = tp.Tracer(tracerName) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cfg config.ServerConfig, engine StageSubmitter, patcher QuestionPatcher, directory ApplicantDirectory, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		patcher:   patcher,
		directory: directory,
		checks:    map[string]ReadinessCheck{},
		logger:    logger.Component(log, "http-api"),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/applications/interview", s.handleSubmitInterview)
	mux.HandleFunc("PUT /api/applications/update-questions", s.handleUpdateQuestions)
	mux.HandleFunc("GET /api/applications", s.handleGetApplications)
	mux.HandleFunc("PUT /api/applications/update-status", s.handleUpdateStatus)
	mux.HandleFunc("PATCH /api/applications/update-status", s.handleUpdateStatus)
	mux.HandleFunc("POST /api/career/apply", s.handleApply)
	mux.HandleFunc("PUT /api/career/update-status", s.handleUpdateStatus)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return cors(s.cfg.AllowedOrigin, requestID(tracing(s.tracer, accessLog(s.logger, mux))))
}

// HTTPServer builds the *http.Server for cfg.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Millisecond,
	}
}
