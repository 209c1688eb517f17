// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// probeTimeout bounds each dependency liveness check on /status.
const probeTimeout = 3 * time.Second

// Analyzer runs one analysis pass per request.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error)
}

// Prober is a lightweight dependency liveness check.
type Prober interface {
	Probe(ctx context.Context) error
}

// Server wires the inbound API to the orchestrator and probes.
type Server struct {
	echo     *echo.Echo
	validate *validator.Validate
	analyzer Analyzer
	market   Prober
	news     Prober
	llm      Prober
	addr     string
}

func New(addr string, analyzer Analyzer, market, news, llm Prober) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		validate: validator.New(),
		analyzer: analyzer,
		market:   market,
		news:     news,
		llm:      llm,
		addr:     addr,
	}

	e.POST("/analyze", s.Analyze)
	e.GET("/status", s.Status)
	return s
}

type analyzeRequest struct {
	Symbol string `json:"symbol" validate:"required,len=3,alpha"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Analyze handles POST /analyze. Internal failures surface as a short
// error string and a status code, never stack detail.
func (s *Server) Analyze(c echo.Context) error {
	req := new(analyzeRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request format"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request format"})
	}
	symbol := strings.ToUpper(req.Symbol)

	ctx := c.Request().Context()
	logger.Info(ctx, "Analysis requested", "symbol", symbol)

	result, err := s.analyzer.Analyze(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Analysis request failed", err, "symbol", symbol)
		if errors.Is(err, errs.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request format"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}

	return c.JSON(http.StatusOK, result)
}

type statusResponse struct {
	Binance string `json:"binance"`
	OpenAI  string `json:"openai"`
	News    string `json:"news"`
	Redis   string `json:"redis"`
	MongoDB string `json:"mongodb"`
}

// Status handles GET /status with one lightweight probe per dependency.
// Redis and MongoDB are placeholders and always report unknown.
func (s *Server) Status(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, statusResponse{
		Binance: probe(ctx, s.market),
		OpenAI:  probe(ctx, s.llm),
		News:    probe(ctx, s.news),
		Redis:   "unknown",
		MongoDB: "unknown",
	})
}

func probe(ctx context.Context, p Prober) string {
	if p == nil {
		return "unknown"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.Probe(ctx); err != nil {
		return "error"
	}
	return "ok"
}

// Start runs the HTTP listener until Shutdown.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
