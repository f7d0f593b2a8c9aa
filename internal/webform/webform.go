// Package webform serves the heart disease risk form and its JSON API.
//
// The HTML form mirrors the clinician-facing page: patient vitals, medical
// history and a Predict button that shows a High or Low Risk banner. The
// JSON API accepts the same fields for programmatic clients.
package webform

import (
	"context"
	"net/http"
	"time"

	"heart-risk/internal/common"
	"heart-risk/internal/metrics"
	"heart-risk/internal/ml"
	"heart-risk/internal/patient"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Predictor is the part of ml.Predictor the handlers need.
type Predictor interface {
	Predict(ctx context.Context, in patient.RawInput) (ml.Result, error)
	Describe() ml.ModelInfo
}

type Server struct {
	predictor      Predictor
	metrics        *metrics.MetricsWrapper
	metricsHandler http.Handler
	router         *mux.Router
}

type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// New builds the router. A nil metrics wrapper disables counting.
func New(p Predictor, m *metrics.MetricsWrapper, opts ...Option) *Server {
	s := &Server{predictor: p, metrics: m}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)
	r.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleFormSubmit).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predict", s.handlePredictAPI).Methods(http.MethodPost)
	api.HandleFunc("/model", s.handleModelAPI).Methods(http.MethodGet)

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler).Methods(http.MethodGet)
	}

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware reuses a sane client X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(common.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("request_id", RequestID(r.Context())).
			Msg("request handled")
	})
}
