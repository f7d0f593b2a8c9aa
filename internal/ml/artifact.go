package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"heart-risk/internal/features"
	"heart-risk/internal/storage"

	"github.com/rs/zerolog/log"
)

// Artifact formats accepted by LoadArtifacts.
const (
	FormatJSON   = "json"
	FormatBundle = "bundle"
	FormatPickle = "pickle"
	FormatRemote = "remote"
)

// Document is the JSON form of a scaler or classifier artifact. Kind selects
// which of the parameter fields are read.
type Document struct {
	Kind      string       `json:"kind"`
	Features  []string     `json:"features,omitempty"`
	NFeatures int          `json:"n_features,omitempty"`
	Mean      []float64    `json:"mean,omitempty"`
	Scale     []float64    `json:"scale,omitempty"`
	Min       []float64    `json:"min,omitempty"`
	Max       []float64    `json:"max,omitempty"`
	Range     []float64    `json:"range,omitempty"`
	Coef      []float64    `json:"coef,omitempty"`
	Intercept float64      `json:"intercept,omitempty"`
	Threshold float64      `json:"threshold,omitempty"`
	Nodes     []TreeNode   `json:"nodes,omitempty"`
	Trees     [][]TreeNode `json:"trees,omitempty"`
}

// width returns the declared column count, falling back to fallback.
func (d Document) width(fallback int) int {
	if len(d.Features) > 0 {
		return len(d.Features)
	}
	if d.NFeatures > 0 {
		return d.NFeatures
	}
	return fallback
}

func (d Document) checkNames(what string, want []string) error {
	if len(d.Features) == 0 {
		return nil
	}
	if len(d.Features) != len(want) {
		return fmt.Errorf("%w: %s lists %d feature names, expected %d", ErrSchemaMismatch, what, len(d.Features), len(want))
	}
	for i, name := range want {
		if d.Features[i] != name {
			return fmt.Errorf("%w: %s column %d is %q, expected %q", ErrSchemaMismatch, what, i, d.Features[i], name)
		}
	}
	return nil
}

// DecodeScaler builds a scaler from a JSON document.
func DecodeScaler(data []byte) (Scaler, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode scaler: %v", ErrArtifactLoad, err)
	}
	if err := doc.checkNames("scaler", features.NumericNames[:]); err != nil {
		return nil, err
	}

	var (
		s   Scaler
		err error
	)
	switch doc.Kind {
	case "standard":
		s, err = NewStandardScaler(doc.Mean, doc.Scale)
	case "minmax":
		lo, hi := 0.0, 1.0
		if len(doc.Range) == 2 {
			lo, hi = doc.Range[0], doc.Range[1]
		}
		s, err = NewMinMaxScaler(doc.Min, doc.Max, lo, hi)
	default:
		return nil, fmt.Errorf("%w: unknown scaler kind %q", ErrArtifactLoad, doc.Kind)
	}
	if err != nil {
		return nil, err
	}
	if w := doc.width(s.NumFeatures()); w != s.NumFeatures() {
		return nil, fmt.Errorf("%w: scaler declares %d features but has %d parameters", ErrArtifactLoad, w, s.NumFeatures())
	}
	return s, nil
}

// DecodeClassifier builds a classifier from a JSON document.
func DecodeClassifier(data []byte) (Classifier, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode classifier: %v", ErrArtifactLoad, err)
	}
	if err := doc.checkNames("classifier", features.Names[:]); err != nil {
		return nil, err
	}

	var (
		c   Classifier
		err error
	)
	switch doc.Kind {
	case "logistic":
		c, err = NewLogisticRegression(doc.Coef, doc.Intercept, doc.Threshold)
		if err == nil && doc.width(len(doc.Coef)) != len(doc.Coef) {
			err = fmt.Errorf("%w: classifier declares %d features but has %d coefficients", ErrArtifactLoad, doc.width(0), len(doc.Coef))
		}
	case "tree":
		c, err = NewDecisionTree(doc.Nodes, doc.width(0))
	case "forest":
		c, err = NewRandomForest(doc.Trees, doc.width(0))
	default:
		return nil, fmt.Errorf("%w: unknown classifier kind %q", ErrArtifactLoad, doc.Kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func LoadScalerFile(path string) (Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read scaler: %v", ErrArtifactLoad, err)
	}
	return DecodeScaler(data)
}

func LoadClassifierFile(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read classifier: %v", ErrArtifactLoad, err)
	}
	return DecodeClassifier(data)
}

// LoadOptions selects where artifacts come from.
type LoadOptions struct {
	Format       string
	ScalerPath   string
	ModelPath    string
	BundlePath   string
	PythonPath   string
	InferenceURL string
	Timeout      time.Duration
}

// Artifacts is the loaded scaler and classifier pair.
type Artifacts struct {
	Scaler     Scaler
	Classifier Classifier
	Source     string
	LoadedAt   time.Time

	closer func() error
}

// Close releases anything the artifact backend holds, such as the Python
// bridge script.
func (a *Artifacts) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer()
}

// LoadArtifacts loads both artifacts. Any error is fatal for the caller: the
// process cannot serve predictions without them.
func LoadArtifacts(ctx context.Context, opts LoadOptions) (*Artifacts, error) {
	a := &Artifacts{LoadedAt: time.Now()}

	switch opts.Format {
	case FormatJSON, "":
		s, err := LoadScalerFile(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		c, err := LoadClassifierFile(opts.ModelPath)
		if err != nil {
			return nil, err
		}
		a.Scaler, a.Classifier = s, c
		a.Source = opts.ScalerPath + ", " + opts.ModelPath

	case FormatBundle:
		s, c, err := loadBundle(opts.BundlePath)
		if err != nil {
			return nil, err
		}
		a.Scaler, a.Classifier = s, c
		a.Source = opts.BundlePath

	case FormatPickle:
		bridge, err := NewPickleBridge(ctx, PickleOptions{
			PythonPath: opts.PythonPath,
			ScalerPath: opts.ScalerPath,
			ModelPath:  opts.ModelPath,
			Timeout:    opts.Timeout,
		})
		if err != nil {
			return nil, err
		}
		a.Scaler, a.Classifier = bridge.Scaler(), bridge.Classifier()
		a.closer = bridge.Close
		a.Source = opts.ScalerPath + ", " + opts.ModelPath

	case FormatRemote:
		s, err := LoadScalerFile(opts.ScalerPath)
		if err != nil {
			return nil, err
		}
		c, err := NewRemoteClassifier(ctx, opts.InferenceURL, opts.Timeout)
		if err != nil {
			return nil, err
		}
		a.Scaler, a.Classifier = s, c
		a.Source = opts.ScalerPath + ", " + opts.InferenceURL

	default:
		return nil, fmt.Errorf("%w: unknown artifact format %q", ErrArtifactLoad, opts.Format)
	}

	log.Info().
		Str("format", opts.Format).
		Str("source", a.Source).
		Str("scaler", kindOf(a.Scaler)).
		Str("classifier", kindOf(a.Classifier)).
		Msg("artifacts loaded")
	return a, nil
}

func loadBundle(path string) (Scaler, Classifier, error) {
	store, err := storage.OpenReadOnly(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	defer store.Close()

	scalerDoc, classifierDoc, err := store.Artifacts()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	s, err := DecodeScaler(scalerDoc)
	if err != nil {
		return nil, nil, err
	}
	c, err := DecodeClassifier(classifierDoc)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}
