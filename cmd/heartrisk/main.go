package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heart-risk/internal/cfg"
	"heart-risk/internal/logging"
	"heart-risk/internal/metrics"
	"heart-risk/internal/ml"
	"heart-risk/internal/webform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logCloser, err := logging.Setup(c.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("logging setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, c, prometheus.DefaultRegisterer, promhttp.Handler())
	stop()
	if err != nil {
		log.Error().Err(err).Msg("heartrisk stopped")
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx is done. Everything it opens is released before it
// returns, including on startup errors.
func run(ctx context.Context, c cfg.Settings, registerer prometheus.Registerer, metricsHandler http.Handler) error {
	artifacts, err := ml.LoadArtifacts(ctx, c.ArtifactOptions())
	if err != nil {
		return fmt.Errorf("failed to load %s artifacts: %w", c.ArtifactFormat, err)
	}
	defer artifacts.Close()

	var mw *metrics.MetricsWrapper
	var opts []webform.Option
	if c.MetricsEnabled {
		mw = metrics.NewWrapper(metrics.NewWithRegistry(registerer))
		mw.ArtifactsLoaded(artifacts.LoadedAt)
		opts = append(opts, webform.WithMetricsHandler(metricsHandler))
	}

	predictorOpts := []ml.Option{ml.WithCacheSize(c.CacheSize)}
	if mw != nil {
		predictorOpts = append(predictorOpts, ml.WithMetrics(mw))
	}
	predictor, err := ml.NewPredictor(artifacts.Scaler, artifacts.Classifier, predictorOpts...)
	if err != nil {
		return fmt.Errorf("artifacts do not fit the feature pipeline: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           webform.New(predictor, mw, opts...),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", c.Port).Bool("metrics", c.MetricsEnabled).Msg("serving heart risk form")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown http server")
	}
	if serveErr != nil {
		return fmt.Errorf("http server failed: %w", serveErr)
	}
	return nil
}
