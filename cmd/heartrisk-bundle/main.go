package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"heart-risk/internal/cfg"
	"heart-risk/internal/features"
	"heart-risk/internal/logging"
	"heart-risk/internal/ml"
	"heart-risk/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("heartrisk-bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		scalerPath  = fs.String("scaler", "", "Scaler JSON document")
		modelPath   = fs.String("model", "", "Classifier JSON document")
		outPath     = fs.String("out", "", "Bundle file to write")
		inspectPath = fs.String("inspect", "", "Print what the bundle at this path holds")
		serveAddr   = fs.String("serve", "", "Serve the classifier of -bundle over HTTP on this address")
		bundlePath  = fs.String("bundle", "", "Bundle to serve")
		timeout     = fs.Duration("timeout", 5*time.Second, "Per-request inference timeout when serving")
		logLevel    = fs.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, err := logging.Setup(cfg.LogSettings{Level: *logLevel, Console: true}); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	var err error
	switch {
	case *inspectPath != "":
		err = inspect(stdout, *inspectPath)
	case *serveAddr != "":
		if *bundlePath == "" {
			fmt.Fprintln(stderr, "-serve needs -bundle")
			return 2
		}
		err = serve(*serveAddr, *bundlePath, *timeout)
	case *scalerPath != "" && *modelPath != "" && *outPath != "":
		err = build(*scalerPath, *modelPath, *outPath)
	default:
		fs.Usage()
		return 2
	}
	if err != nil {
		log.Error().Err(err).Msg("bundle command failed")
		return 1
	}
	return 0
}

// build validates both documents before anything is written.
func build(scalerPath, modelPath, outPath string) error {
	scalerDoc, err := os.ReadFile(scalerPath)
	if err != nil {
		return fmt.Errorf("read scaler: %w", err)
	}
	modelDoc, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	if _, err := ml.DecodeScaler(scalerDoc); err != nil {
		return err
	}
	if _, err := ml.DecodeClassifier(modelDoc); err != nil {
		return err
	}

	store, err := storage.New(outPath)
	if err != nil {
		return err
	}
	defer store.Close()

	meta := storage.Meta{
		CreatedAt:      time.Now().UTC(),
		FeatureNames:   features.Names[:],
		ScalerKind:     docKind(scalerDoc),
		ClassifierKind: docKind(modelDoc),
		Source:         scalerPath + ", " + modelPath,
	}
	if err := store.PutArtifacts(scalerDoc, modelDoc, meta); err != nil {
		return err
	}

	log.Info().
		Str("out", outPath).
		Str("scaler", meta.ScalerKind).
		Str("classifier", meta.ClassifierKind).
		Msg("bundle written")
	return nil
}

func docKind(data []byte) string {
	var doc ml.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return doc.Kind
}

func inspect(w io.Writer, path string) error {
	store, err := storage.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	meta, err := store.Meta()
	if err != nil {
		return err
	}
	scalerDoc, modelDoc, err := store.Artifacts()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Bundle:      %s\n", path)
	fmt.Fprintf(w, "Created:     %s\n", meta.CreatedAt.Format(time.RFC3339))
	if meta.Source != "" {
		fmt.Fprintf(w, "Source:      %s\n", meta.Source)
	}
	fmt.Fprintf(w, "Scaler:      %s (%d bytes)\n", meta.ScalerKind, len(scalerDoc))
	fmt.Fprintf(w, "Classifier:  %s (%d bytes)\n", meta.ClassifierKind, len(modelDoc))
	fmt.Fprintf(w, "Features:    %s\n", strings.Join(meta.FeatureNames, ", "))
	return nil
}

func serve(addr, bundlePath string, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	artifacts, err := ml.LoadArtifacts(ctx, ml.LoadOptions{Format: ml.FormatBundle, BundlePath: bundlePath})
	if err != nil {
		return err
	}
	defer artifacts.Close()

	server := ml.NewModelServer(artifacts.Classifier, addr, timeout)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
