package webform

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"heart-risk/internal/features"
	"heart-risk/internal/ml"
	"heart-risk/internal/patient"

	"github.com/rs/zerolog/log"
)

type predictResponse struct {
	RequestID string           `json:"request_id"`
	Risk      string           `json:"risk"`
	Label     string           `json:"label"`
	Message   string           `json:"message"`
	Cached    bool             `json:"cached"`
	Features  []features.Named `json:"features,omitempty"`
}

type errorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (s *Server) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())

	var fields patient.Fields
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(&fields)
	if err == nil && dec.More() {
		err = errors.New("unexpected data after the JSON object")
	}
	if err != nil {
		s.metrics.InvalidInputInc()
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "invalid request body",
			Details:   map[string]string{"body": err.Error()},
			RequestID: requestID,
		})
		return
	}

	in, err := fields.Input()
	if err != nil {
		s.metrics.InvalidInputInc()
		writeJSON(w, http.StatusBadRequest, invalidInput(err, requestID))
		return
	}

	res, err := s.predictor.Predict(r.Context(), in)
	if err != nil {
		if ml.FailureKind(err) == ml.FailureInvalidInput {
			writeJSON(w, http.StatusBadRequest, invalidInput(err, requestID))
			return
		}
		log.Error().Err(err).Str("request_id", requestID).Msg("Prediction request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "prediction failed",
			Details:   map[string]string{"kind": ml.FailureKind(err)},
			RequestID: requestID,
		})
		return
	}

	resp := predictResponse{
		RequestID: requestID,
		Risk:      res.Risk.String(),
		Label:     res.Risk.Label(),
		Message:   res.Risk.Message(),
		Cached:    res.Cached,
	}
	if verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); verbose {
		resp.Features = res.Encoded.Vector().Named()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModelAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.predictor.Describe())
}

func invalidInput(err error, requestID string) errorResponse {
	resp := errorResponse{Error: "invalid input", RequestID: requestID}
	var verr *patient.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Messages()
	} else {
		resp.Details = map[string]string{"input": err.Error()}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
