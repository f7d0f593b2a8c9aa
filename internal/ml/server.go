package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ModelServer exposes a Classifier over the HTTP protocol RemoteClassifier
// speaks, so a bundle can be hosted for other instances.
type ModelServer struct {
	classifier Classifier
	timeout    time.Duration
	server     *http.Server
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(classifier Classifier, addr string, timeout time.Duration) *ModelServer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ms := &ModelServer{classifier: classifier, timeout: timeout}

	ms.server = &http.Server{
		Addr:         addr,
		Handler:      ms.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return ms
}

func (ms *ModelServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", ms.handlePredict)
	mux.HandleFunc("/health", ms.handleHealth)
	mux.HandleFunc("/model/info", ms.handleModelInfo)
	return mux
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, remoteResponse{Error: "method not allowed"})
		return
	}

	var req remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, remoteResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if len(req.Features) != ms.classifier.NumFeatures() {
		writeJSON(w, http.StatusBadRequest, remoteResponse{
			Error: fmt.Sprintf("expected %d features, got %d", ms.classifier.NumFeatures(), len(req.Features)),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ms.timeout)
	defer cancel()

	label, err := ms.classifier.Predict(ctx, req.Features)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, remoteResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, remoteResponse{Prediction: &label})
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, remoteHealth{Status: "ok", NFeatures: ms.classifier.NumFeatures()})
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":       kindOf(ms.classifier),
		"n_features": ms.classifier.NumFeatures(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
