// Package server provides the HTTP API for corpusd.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fernlabs/corpusd/internal/embeddings"
	"github.com/fernlabs/corpusd/internal/extract"
	"github.com/fernlabs/corpusd/internal/generation"
	"github.com/fernlabs/corpusd/internal/ingest"
	"github.com/fernlabs/corpusd/internal/retrieval"
	"github.com/fernlabs/corpusd/internal/vectorstore"
)

// Ingestor runs the ingestion pipeline for one uploaded document.
type Ingestor interface {
	Ingest(ctx context.Context, source string, data []byte) (ingest.Result, error)
}

// Retriever finds chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]vectorstore.SearchResult, error)
}

// Answerer generates a grounded answer from retrieved chunks.
type Answerer interface {
	Answer(ctx context.Context, query string, chunks []vectorstore.SearchResult) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Port int

	// CORSOrigin is the allowed origin. "*" allows all.
	CORSOrigin string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.CORSOrigin == "" {
		c.CORSOrigin = "*"
	}
}

// Server provides HTTP endpoints for corpusd.
type Server struct {
	echo      *echo.Echo
	ingestor  Ingestor
	retriever Retriever
	answerer  Answerer
	logger    *zap.Logger
	config    Config
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(ingestor Ingestor, retriever Retriever, answerer Answerer, logger *zap.Logger, cfg Config) (*Server, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	cfg.ApplyDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		ingestor:  ingestor,
		retriever: retriever,
		answerer:  answerer,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/upload", s.handleUpload)
	s.echo.POST("/chat", s.handleChat)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UploadResponse is the response body for POST /upload.
type UploadResponse struct {
	Message     string `json:"message"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Chunks      int    `json:"chunks"`
	Outcome     string `json:"outcome"`
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the response body for POST /chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleUpload ingests one uploaded PDF.
func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}

	result, err := s.ingestor.Ingest(c.Request().Context(), fileHeader.Filename, data)
	if err != nil {
		return s.mapError(c, err)
	}

	var message string
	switch result.Outcome {
	case ingest.OutcomeAlreadyProcessed:
		message = fmt.Sprintf("Document %q was already processed.", result.Source)
	case ingest.OutcomeNoContent:
		message = fmt.Sprintf("Document %q contains no extractable text.", result.Source)
	default:
		message = fmt.Sprintf("Document %q processed and stored successfully (%d chunks).",
			result.Source, result.Chunks)
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Message:     message,
		Fingerprint: result.Fingerprint,
		Chunks:      result.Chunks,
		Outcome:     string(result.Outcome),
	})
}

// handleChat answers one question grounded in the stored corpus.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	ctx := c.Request().Context()

	chunks, err := s.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		return s.mapError(c, err)
	}

	answer, err := s.answerer.Answer(ctx, req.Query, chunks)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, ChatResponse{Answer: answer})
}

// mapError translates pipeline errors to HTTP responses. Full detail goes to
// the log; users get messages that leak nothing about the backends.
func (s *Server) mapError(c echo.Context, err error) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	switch {
	case errors.Is(err, extract.ErrExtraction):
		s.logger.Warn("extraction failed", zap.String("request_id", requestID), zap.Error(err))
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			"the uploaded file could not be read as a PDF")

	case errors.Is(err, retrieval.ErrEmptyQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")

	case errors.Is(err, embeddings.ErrDimensionMismatch):
		s.logger.Error("embedding dimension mismatch, check model and store configuration",
			zap.String("request_id", requestID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")

	case errors.Is(err, embeddings.ErrProvider), errors.Is(err, generation.ErrProvider):
		s.logger.Warn("provider unavailable", zap.String("request_id", requestID), zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			"the service is temporarily unavailable, please retry later")

	case errors.Is(err, vectorstore.ErrStore):
		s.logger.Error("vector store failure", zap.String("request_id", requestID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")

	default:
		s.logger.Error("unhandled error", zap.String("request_id", requestID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
