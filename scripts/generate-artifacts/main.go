// Command generate-artifacts writes a sample scaler and logistic classifier in
// the JSON artifact format, and optionally packs them into a bundle, so the
// service can run without the trained model.
//
// The coefficients are illustrative. They have the signs a model fitted on the
// heart failure dataset shows but are not a trained model.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"heart-risk/internal/features"
	"heart-risk/internal/ml"
	"heart-risk/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		outDir     = flag.String("out", "artifacts", "Directory for scaler.json and model.json")
		bundlePath = flag.String("bundle", "", "Also write a bundle to this path")
	)
	flag.Parse()

	scaler := ml.Document{
		Kind:     "standard",
		Features: features.NumericNames[:],
		Mean:     []float64{53.51, 132.40, 198.80, 136.81, 0.887},
		Scale:    []float64{9.43, 18.50, 109.32, 25.45, 1.066},
	}
	model := ml.Document{
		Kind:     "logistic",
		Features: features.Names[:],
		// Numerics, fastingBS, sex, chest pain, resting ECG, exercise angina, ST slope.
		Coef: []float64{
			0.20, 0.05, -0.30, -0.25, 0.45,
			0.90,
			1.30,
			1.90, 0.50, 0.60,
			-0.10, -0.20,
			0.90,
			1.00, -1.20,
		},
		Intercept: -1.5,
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create output directory")
	}
	scalerDoc := mustWrite(filepath.Join(*outDir, "scaler.json"), scaler)
	modelDoc := mustWrite(filepath.Join(*outDir, "model.json"), model)

	if *bundlePath != "" {
		store, err := storage.New(*bundlePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create bundle")
		}
		defer store.Close()
		err = store.PutArtifacts(scalerDoc, modelDoc, storage.Meta{
			CreatedAt:      time.Now().UTC(),
			FeatureNames:   features.Names[:],
			ScalerKind:     scaler.Kind,
			ClassifierKind: model.Kind,
			Source:         "generate-artifacts",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to write bundle")
		}
		fmt.Printf("✓ Wrote bundle %s\n", *bundlePath)
	}

	fmt.Printf("✓ Wrote sample artifacts to %s\n", *outDir)
}

func mustWrite(path string, doc ml.Document) []byte {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode artifact")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to write artifact")
	}
	return data
}
