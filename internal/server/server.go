package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/billable/timesheet-api/internal/auth"
	"github.com/billable/timesheet-api/internal/config"
	"github.com/billable/timesheet-api/internal/http/handlers"
	"github.com/billable/timesheet-api/internal/middleware"
	"github.com/billable/timesheet-api/internal/storage"
	"github.com/billable/timesheet-api/internal/timesheet"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server. The timesheet
// routes sit behind the bearer-token identity gate; health and auth do not.
func New(cfg config.Config, log *slog.Logger, users storage.UserStore, timesheets storage.TimesheetStore) *Server {
	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handlers.NewAuthHandler(users, tokens, log).Register(mux)

	api := http.NewServeMux()
	svc := timesheet.NewService(timesheets)
	handlers.NewTimesheetHandler(svc, log).Register(api)
	authenticated := middleware.Authenticate(tokens, api)
	mux.Handle("/api/timesheets", authenticated)
	mux.Handle("/api/timesheets/", authenticated)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
