package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hamed0406/saischeck/internal/command"
	"github.com/hamed0406/saischeck/internal/domain"
	apimw "github.com/hamed0406/saischeck/internal/httpapi/middleware"
	"github.com/hamed0406/saischeck/internal/metrics"
)

// Statuser is implemented by *command.Handler.
type Statuser interface {
	Status(ctx context.Context, surface string) (domain.Report, error)
}

type Server struct {
	Logger  *zap.Logger
	Status  Statuser
	Metrics *metrics.Metrics
	Clock   clockwork.Clock
}

func NewServer(l *zap.Logger, st Statuser, m *metrics.Metrics, clock clockwork.Clock) *Server {
	return &Server{Logger: l, Status: st, Metrics: m, Clock: clock}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if s.Metrics != nil {
		r.With(apimw.RequireAdmin(keys)).Handle("/metrics", s.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(s.Clock, rpm, burst))
		r.Use(apimw.RequireAny(keys))
		r.Post("/api/probe", s.handleProbe)
	})

	return r
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	report, err := s.Status.Status(r.Context(), "http")

	var cd *command.CooldownError
	switch {
	case errors.As(err, &cd):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cd.RetryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "cooldown"})
	case err != nil && report.Text != "":
		s.Logger.Error("api_probe_error", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, report)
	case err != nil:
		s.Logger.Warn("api_probe_abandoned", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "probe unavailable"})
	default:
		s.Logger.Info("api_probe",
			zap.String("outcome", report.Outcome),
			zap.Int("http_status", report.HTTPStatus),
			zap.Float64("latency_ms", report.LatencyMS),
		)
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
