package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"heart-risk/internal/cfg"
	"heart-risk/internal/common"
	"heart-risk/internal/features"
	"heart-risk/internal/logging"
	"heart-risk/internal/ml"
	"heart-risk/internal/patient"

	"github.com/rs/zerolog/log"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

type output struct {
	Risk     string           `json:"risk"`
	Label    string           `json:"label"`
	Message  string           `json:"message"`
	Features []features.Named `json:"features,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := patient.Defaults().Fields()

	fs := flag.NewFlagSet("heartrisk-predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file (overrides CONFIG_FILE)")
		asJSON     = fs.Bool("json", false, "Print the result as JSON")
		verbose    = fs.Bool("verbose", false, "Also print the encoded feature vector")
		logLevel   = fs.String("log-level", "warn", "Log level: debug, info, warn, error")

		age            = fs.Int("age", defaults.Age, "Age in years")
		restingBP      = fs.Int("resting-bp", defaults.RestingBP, "Resting blood pressure")
		cholesterol    = fs.Int("cholesterol", defaults.Cholesterol, "Cholesterol")
		maxHR          = fs.Int("max-hr", defaults.MaxHR, "Max heart rate")
		oldpeak        = fs.Float64("oldpeak", defaults.Oldpeak, "Oldpeak (ST depression)")
		sex            = fs.String("sex", defaults.Sex, "Sex: Male, Female")
		fastingBS      = fs.String("fasting-bs", defaults.FastingBS, "Fasting blood sugar > 120 mg/dl: Yes, No")
		chestPain      = fs.String("chest-pain", defaults.ChestPainType, "Chest pain type: ATA, NAP, ASY, TA")
		exerciseAngina = fs.String("exercise-angina", defaults.ExerciseAngina, "Exercise induced angina: Yes, No")
		stSlope        = fs.String("st-slope", defaults.STSlope, "ST slope: Up, Flat, Down")
		restingECG     = fs.String("resting-ecg", defaults.RestingECG, "Resting ECG: Normal, ST, LVH")
	)
	if err := fs.Parse(args); err != nil {
		return exitInvalid
	}

	if _, err := logging.Setup(cfg.LogSettings{Level: *logLevel, Console: true}); err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	in, err := patient.Fields{
		Age:            *age,
		RestingBP:      *restingBP,
		Cholesterol:    *cholesterol,
		MaxHR:          *maxHR,
		Oldpeak:        *oldpeak,
		Sex:            *sex,
		FastingBS:      *fastingBS,
		ChestPainType:  *chestPain,
		ExerciseAngina: *exerciseAngina,
		STSlope:        *stSlope,
		RestingECG:     *restingECG,
	}.Input()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	if *configPath != "" {
		os.Setenv(common.EnvConfigFile, *configPath)
	}
	settings, err := cfg.Load()
	if err != nil {
		log.Error().Err(err).Msg("config load failed")
		return exitFailure
	}

	ctx := context.Background()
	artifacts, err := ml.LoadArtifacts(ctx, settings.ArtifactOptions())
	if err != nil {
		log.Error().Err(err).Msg("failed to load artifacts")
		return exitFailure
	}
	defer artifacts.Close()

	predictor, err := ml.NewPredictor(artifacts.Scaler, artifacts.Classifier)
	if err != nil {
		log.Error().Err(err).Msg("artifacts do not fit the feature pipeline")
		return exitFailure
	}

	res, err := predictor.Predict(ctx, in)
	if err != nil {
		log.Error().Err(err).Str("kind", ml.FailureKind(err)).Msg("prediction failed")
		if errors.Is(err, patient.ErrInvalidInput) {
			return exitInvalid
		}
		return exitFailure
	}

	out := output{Risk: res.Risk.String(), Label: res.Risk.Label(), Message: res.Risk.Message()}
	if *verbose {
		out.Features = res.Encoded.Vector().Named()
	}
	if err := write(stdout, out, *asJSON); err != nil {
		log.Error().Err(err).Msg("failed to write result")
		return exitFailure
	}
	return exitOK
}

func write(w io.Writer, out output, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if _, err := fmt.Fprintln(w, out.Message); err != nil {
		return err
	}
	for _, f := range out.Features {
		if _, err := fmt.Fprintf(w, "  %-20s %s\n", f.Name, strconv.FormatFloat(f.Value, 'f', 4, 64)); err != nil {
			return err
		}
	}
	return nil
}
