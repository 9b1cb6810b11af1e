package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"amenityhub/internal/config"
	"amenityhub/internal/domain"
	"amenityhub/internal/logging"
	"amenityhub/internal/metrics"
	"amenityhub/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// QueryService is the read side used by the HTTP handlers.
type QueryService interface {
	domain.QueryService
	Busy(ctx context.Context, resourceID string, window models.Interval) ([]models.Interval, error)
}

// ScheduleWriter renders a resource schedule workbook.
type ScheduleWriter interface {
	Write(ctx context.Context, w io.Writer, res *models.Resource, window models.Interval) (int, error)
}

type Deps struct {
	Booking  domain.BookingService
	Queries  QueryService
	Catalog  domain.Catalog
	Exporter ScheduleWriter
}

// HTTPServer exposes the reservation API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		deps:   deps,
		auth:   NewHTTPAuth(cfg),
		logger: logging.Component(logger, "http"),
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Wrap)

		r.Route("/reservations", func(r chi.Router) {
			r.Use(s.auth.RequireRequester)
			r.Post("/", s.handleCreateReservation)
			r.Get("/", s.handleListReservations)
			r.Get("/{id}", s.handleGetReservation)
			r.Put("/{id}", s.handleRescheduleReservation)
			r.Post("/{id}/confirm", s.handleConfirmReservation)
			r.Delete("/{id}", s.handleCancelReservation)
		})

		r.Get("/artifacts/{ref}", s.handleValidateArtifact)

		r.Route("/resources/{id}", func(r chi.Router) {
			r.Get("/availability", s.handleAvailability)
			r.Get("/schedule.xlsx", s.handleScheduleExport)
		})
	})
	return r
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.IncHTTP(route, strconv.Itoa(recorder.status))

		event := s.logger.Debug()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.Str("method", r.Method).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
