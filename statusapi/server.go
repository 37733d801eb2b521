package statusapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	relaypay "github.com/reserve-vault/relaypay/go"
)

// SnapshotSource is implemented by *relaypay.SettlementCoordinator
type SnapshotSource interface {
	Snapshot() relaypay.Snapshot
}

// Server exposes the coordinator's read-only state over HTTP for UI collaborators
type Server struct {
	echo    *echo.Echo
	source  SnapshotSource
	balance relaypay.BalanceSource
	logger  logrus.FieldLogger
}

// Option configures the server
type Option func(*Server)

// WithBalance adds the cached balance to /status responses
func WithBalance(balance relaypay.BalanceSource) Option {
	return func(s *Server) {
		s.balance = balance
	}
}

// WithLogger sets the request logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	relaypay.Snapshot
	Balance string `json:"balance,omitempty"`
}

// NewServer creates a status server reading from source
func NewServer(source SnapshotSource, opts ...Option) *Server {
	s := &Server{
		echo:   echo.New(),
		source: source,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "statusapi")

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.logRequests)

	s.echo.GET("/health", s.health)
	s.echo.GET("/status", s.status)
	s.echo.GET("/status/authorization", s.authorization)
	s.echo.GET("/status/result", s.result)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.WithField("addr", addr).Info("status server listening")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	resp := StatusResponse{Snapshot: s.source.Snapshot()}
	if s.balance != nil {
		resp.Balance = s.balance.KnownBalance()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) authorization(c echo.Context) error {
	auth := s.source.Snapshot().Authorization
	if auth == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no authorization")
	}
	return c.JSON(http.StatusOK, auth)
}

func (s *Server) result(c echo.Context) error {
	result := s.source.Snapshot().Result
	if result == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no settlement result")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": c.Response().Status,
		}).Debug("request served")
		return err
	}
}
