package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"heart-risk/internal/features"

	"github.com/rs/zerolog/log"
)

// PickleOptions configures the Python bridge to pickled scikit-learn
// artifacts.
type PickleOptions struct {
	PythonPath string // empty means search for one
	ScalerPath string
	ModelPath  string
	Timeout    time.Duration
}

// PickleBridge answers scaler and classifier calls by running the pickled
// scikit-learn objects in a short-lived Python process per call.
type PickleBridge struct {
	pythonPath string
	scriptDir  string
	scriptPath string
	scalerPath string
	modelPath  string
	timeout    time.Duration

	scaler bridgeShape
	model  bridgeShape
}

type bridgeRequest struct {
	Op  string    `json:"op"`
	Row []float64 `json:"row,omitempty"`
}

type bridgeShape struct {
	Kind      string   `json:"kind"`
	NFeatures int      `json:"n_features"`
	Features  []string `json:"features,omitempty"`
}

type bridgeResponse struct {
	Row    []float64    `json:"row,omitempty"`
	Label  *int         `json:"label,omitempty"`
	Scaler *bridgeShape `json:"scaler,omitempty"`
	Model  *bridgeShape `json:"model,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// NewPickleBridge locates Python, writes the bridge script to a temporary
// directory and asks Python to describe both artifacts. The bridge is only
// returned once both pickles load and match the feature schema.
func NewPickleBridge(ctx context.Context, opts PickleOptions) (*PickleBridge, error) {
	for _, p := range []string{opts.ScalerPath, opts.ModelPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
		}
	}

	pythonPath := opts.PythonPath
	if pythonPath == "" {
		var err error
		if pythonPath, err = findPython(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
		}
	}

	scriptDir, err := os.MkdirTemp("", "heartrisk-bridge-")
	if err != nil {
		return nil, fmt.Errorf("%w: create bridge dir: %v", ErrArtifactLoad, err)
	}
	scriptPath := filepath.Join(scriptDir, "pickle_bridge.py")
	if err := os.WriteFile(scriptPath, []byte(bridgeScript), 0o755); err != nil {
		os.RemoveAll(scriptDir)
		return nil, fmt.Errorf("%w: write bridge script: %v", ErrArtifactLoad, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b := &PickleBridge{
		pythonPath: pythonPath,
		scriptDir:  scriptDir,
		scriptPath: scriptPath,
		scalerPath: opts.ScalerPath,
		modelPath:  opts.ModelPath,
		timeout:    timeout,
	}

	if err := b.describe(ctx); err != nil {
		b.Close()
		return nil, err
	}

	log.Info().
		Str("python_path", pythonPath).
		Str("scaler", b.scaler.Kind).
		Str("model", b.model.Kind).
		Msg("Pickled artifacts loaded through Python bridge")
	return b, nil
}

func (b *PickleBridge) describe(ctx context.Context) error {
	resp, err := b.call(ctx, bridgeRequest{Op: "describe"})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	if resp.Scaler == nil || resp.Model == nil {
		return fmt.Errorf("%w: bridge did not describe both artifacts", ErrArtifactLoad)
	}
	b.scaler, b.model = *resp.Scaler, *resp.Model

	if err := checkShape("scaler", b.scaler, features.NumericNames[:]); err != nil {
		return err
	}
	return checkShape("classifier", b.model, features.Names[:])
}

func checkShape(what string, s bridgeShape, want []string) error {
	if s.NFeatures != len(want) {
		return fmt.Errorf("%w: pickled %s expects %d features, got %d", ErrSchemaMismatch, what, s.NFeatures, len(want))
	}
	return Document{Features: s.Features}.checkNames("pickled "+what, want)
}

// Close removes the bridge script.
func (b *PickleBridge) Close() error {
	if b == nil || b.scriptDir == "" {
		return nil
	}
	return os.RemoveAll(b.scriptDir)
}

func (b *PickleBridge) Scaler() Scaler         { return pickleScaler{b} }
func (b *PickleBridge) Classifier() Classifier { return pickleClassifier{b} }

func (b *PickleBridge) call(ctx context.Context, req bridgeRequest) (*bridgeResponse, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.pythonPath, b.scriptPath, b.scalerPath, b.modelPath)
	cmd.Stdin = bytes.NewReader(append(reqJSON, '\n'))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("python bridge timeout after %v", b.timeout)
	}

	var resp bridgeResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		log.Error().
			Err(runErr).
			Str("op", req.Op).
			Str("python_path", b.pythonPath).
			Str("stderr", stderr.String()).
			Str("stdout", stdout.String()).
			Msg("Python bridge returned no usable response")
		if runErr != nil {
			return nil, fmt.Errorf("python bridge failed: %w, stderr: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to parse bridge response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python bridge error: %s", resp.Error)
	}
	if runErr != nil {
		return nil, fmt.Errorf("python bridge failed: %w", runErr)
	}
	return &resp, nil
}

type pickleScaler struct{ b *PickleBridge }

func (s pickleScaler) Kind() string     { return "pickle:" + s.b.scaler.Kind }
func (s pickleScaler) NumFeatures() int { return s.b.scaler.NFeatures }

func (s pickleScaler) Transform(ctx context.Context, row []float64) ([]float64, error) {
	if err := checkWidth("pickled scaler", len(row), s.b.scaler.NFeatures); err != nil {
		return nil, err
	}
	resp, err := s.b.call(ctx, bridgeRequest{Op: "transform", Row: row})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return resp.Row, nil
}

type pickleClassifier struct{ b *PickleBridge }

func (c pickleClassifier) Kind() string     { return "pickle:" + c.b.model.Kind }
func (c pickleClassifier) NumFeatures() int { return c.b.model.NFeatures }

func (c pickleClassifier) Predict(ctx context.Context, row []float64) (int, error) {
	if err := checkWidth("pickled classifier", len(row), c.b.model.NFeatures); err != nil {
		return 0, err
	}
	resp, err := c.b.call(ctx, bridgeRequest{Op: "predict", Row: row})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if resp.Label == nil {
		return 0, fmt.Errorf("%w: bridge returned no label", ErrInference)
	}
	return *resp.Label, nil
}

const probeScript = "import sys, sklearn; print('Python', sys.version)"

func findPython() (string, error) {
	var candidates []string

	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates = append(candidates,
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		)
	}

	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		for _, root := range []string{execDir, filepath.Dir(execDir)} {
			candidates = append(candidates,
				filepath.Join(root, "venv", "bin", "python3"),
				filepath.Join(root, ".venv", "bin", "python3"),
			)
		}
	}

	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, path)
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		out, err := exec.Command(path, "-c", probeScript).Output()
		if err == nil && strings.Contains(string(out), "Python 3") {
			log.Info().Str("python_path", path).Msg("Using Python with scikit-learn")
			return path, nil
		}
	}

	return "", fmt.Errorf("no Python 3 with scikit-learn found; set PYTHON_PATH")
}

const bridgeScript = `#!/usr/bin/env python3
import json
import pickle
import sys


def load(path):
    with open(path, "rb") as f:
        return pickle.load(f)


def frame(obj, row):
    names = getattr(obj, "feature_names_in_", None)
    if names is None:
        return [row]
    import pandas
    return pandas.DataFrame([row], columns=list(names))


def shape(obj):
    names = getattr(obj, "feature_names_in_", None)
    return {
        "kind": type(obj).__name__,
        "n_features": int(getattr(obj, "n_features_in_", 0)),
        "features": [str(n) for n in names] if names is not None else [],
    }


def main():
    if len(sys.argv) != 3:
        print(json.dumps({"error": "usage: pickle_bridge.py <scaler> <model>"}))
        sys.exit(1)
    try:
        request = json.loads(sys.stdin.readline())
        scaler = load(sys.argv[1])
        model = load(sys.argv[2])
        op = request.get("op")
        if op == "describe":
            response = {"scaler": shape(scaler), "model": shape(model)}
        elif op == "transform":
            out = scaler.transform(frame(scaler, request["row"]))
            response = {"row": [float(v) for v in out[0]]}
        elif op == "predict":
            response = {"label": int(model.predict(frame(model, request["row"]))[0])}
        else:
            raise ValueError("unknown op %r" % op)
        print(json.dumps(response))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
