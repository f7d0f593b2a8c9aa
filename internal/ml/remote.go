package ml

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heart-risk/internal/features"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// RemoteClassifier forwards the feature vector to an HTTP inference service
// that hosts the fitted model.
type RemoteClassifier struct {
	base      string
	rest      *resty.Client
	nFeatures int
}

type remoteHealth struct {
	Status    string `json:"status"`
	NFeatures int    `json:"n_features"`
}

type remoteRequest struct {
	Features []float64 `json:"features"`
}

type remoteResponse struct {
	Prediction *int   `json:"prediction"`
	Error      string `json:"error,omitempty"`
}

// NewRemoteClassifier checks the service's /health endpoint before returning.
// A service that reports a feature count must report the classifier width.
func NewRemoteClassifier(ctx context.Context, baseURL string, timeout time.Duration) (*RemoteClassifier, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: inference URL is empty", ErrArtifactLoad)
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	c := &RemoteClassifier{base: strings.TrimRight(baseURL, "/"), rest: r, nFeatures: features.Width}

	health := &remoteHealth{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(health).
		Get(c.base + "/health")
	if err != nil {
		return nil, fmt.Errorf("%w: inference service unreachable: %v", ErrArtifactLoad, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: inference service health %d", ErrArtifactLoad, resp.StatusCode())
	}
	if health.NFeatures != 0 && health.NFeatures != features.Width {
		return nil, fmt.Errorf("%w: inference service expects %d features, got %d", ErrSchemaMismatch, health.NFeatures, features.Width)
	}

	log.Info().Str("inference_url", c.base).Str("status", health.Status).Msg("Remote inference service ready")
	return c, nil
}

func (c *RemoteClassifier) Kind() string     { return "remote" }
func (c *RemoteClassifier) NumFeatures() int { return c.nFeatures }

func (c *RemoteClassifier) Predict(ctx context.Context, row []float64) (int, error) {
	if err := checkWidth("remote classifier", len(row), c.nFeatures); err != nil {
		return 0, err
	}

	result := &remoteResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(remoteRequest{Features: row}).
		SetResult(result).
		SetError(result).
		Post(c.base + "/predict")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: inference service %d %s", ErrInference, resp.StatusCode(), result.Error)
	}
	if result.Prediction == nil {
		return 0, fmt.Errorf("%w: inference service returned no prediction", ErrInference)
	}
	return *result.Prediction, nil
}
