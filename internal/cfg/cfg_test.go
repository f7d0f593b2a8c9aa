package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"heart-risk/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	clearTestEnv(t)

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.ArtifactFormat != "json" {
		t.Errorf("expected default format json, got %s", settings.ArtifactFormat)
	}
	if settings.ScalerPath != "artifacts/scaler.json" || settings.ModelPath != "artifacts/model.json" {
		t.Errorf("unexpected default artifact paths %s, %s", settings.ScalerPath, settings.ModelPath)
	}
	if settings.Port != 8501 {
		t.Errorf("expected default port 8501, got %d", settings.Port)
	}
	if settings.InferenceTimeout != 5*time.Second {
		t.Errorf("expected default inference timeout 5s, got %v", settings.InferenceTimeout)
	}
	if settings.CacheSize != 256 {
		t.Errorf("expected default cache size 256, got %d", settings.CacheSize)
	}
	if !settings.MetricsEnabled || !settings.Log.Console {
		t.Error("expected metrics and console logging enabled by default")
	}
	if settings.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", settings.Log.Level)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name: "bundle format",
			envVars: map[string]string{
				"ARTIFACT_FORMAT": "bundle",
				"BUNDLE_PATH":     "/srv/heartrisk.db",
				"PORT":            "9000",
				"CACHE_SIZE":      "0",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.ArtifactFormat != FormatBundle {
					t.Errorf("expected bundle format, got %s", settings.ArtifactFormat)
				}
				if settings.BundlePath != "/srv/heartrisk.db" {
					t.Errorf("expected bundle path override, got %s", settings.BundlePath)
				}
				if settings.Port != 9000 {
					t.Errorf("expected port 9000, got %d", settings.Port)
				}
				if settings.CacheSize != 0 {
					t.Errorf("expected cache disabled, got %d", settings.CacheSize)
				}
			},
		},
		{
			name: "format is case insensitive",
			envVars: map[string]string{
				"ARTIFACT_FORMAT": "PICKLE",
				"SCALER_PATH":     "scaler.pkl",
				"MODEL_PATH":      "model.pkl",
				"PYTHON_PATH":     "/usr/bin/python3",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.ArtifactFormat != FormatPickle {
					t.Errorf("expected pickle format, got %s", settings.ArtifactFormat)
				}
				if settings.PythonPath != "/usr/bin/python3" {
					t.Errorf("expected python path, got %s", settings.PythonPath)
				}
			},
		},
		{
			name: "remote format with timeout",
			envVars: map[string]string{
				"ARTIFACT_FORMAT":   "remote",
				"INFERENCE_URL":     "http://models:9000",
				"INFERENCE_TIMEOUT": "750ms",
				"METRICS_ENABLED":   "false",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.InferenceURL != "http://models:9000" {
					t.Errorf("expected inference URL, got %s", settings.InferenceURL)
				}
				if settings.InferenceTimeout != 750*time.Millisecond {
					t.Errorf("expected 750ms timeout, got %v", settings.InferenceTimeout)
				}
				if settings.MetricsEnabled {
					t.Error("expected metrics disabled")
				}
			},
		},
		{
			name:    "remote without URL",
			envVars: map[string]string{"ARTIFACT_FORMAT": "remote"},
			wantErr: true,
		},
		{
			name:    "unknown format",
			envVars: map[string]string{"ARTIFACT_FORMAT": "onnx"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"PORT": "80"},
			wantErr: true,
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "no log sink",
			envVars: map[string]string{"LOG_CONSOLE": "false"},
			wantErr: true,
		},
		{
			name: "file logging only",
			envVars: map[string]string{
				"LOG_CONSOLE":     "false",
				"LOG_FILE":        "/var/log/heartrisk.log",
				"LOG_MAX_SIZE_MB": "10",
				"LOG_MAX_BACKUPS": "0",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Log.File != "/var/log/heartrisk.log" {
					t.Errorf("expected log file, got %s", settings.Log.File)
				}
				if settings.Log.MaxSizeMB != 10 || settings.Log.MaxBackups != 0 {
					t.Errorf("unexpected rotation settings %+v", settings.Log)
				}
			},
		},
		{
			name:    "unparseable values keep defaults",
			envVars: map[string]string{"PORT": "eighty", "INFERENCE_TIMEOUT": "soon"},
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8501 || settings.InferenceTimeout != 5*time.Second {
					t.Errorf("expected defaults, got port %d timeout %v", settings.Port, settings.InferenceTimeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad_FromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "full config",
			yamlContent: `
artifacts:
  format: bundle
  bundlePath: /data/heartrisk.db
  inferenceTimeout: 2s
server:
  port: 8600
  metrics: false
cache:
  size: 0
log:
  level: debug
  file: /var/log/heartrisk.log
  maxSizeMB: 20
  maxBackups: 5
  console: false
`,
			validate: func(t *testing.T, settings Settings) {
				if settings.ArtifactFormat != FormatBundle || settings.BundlePath != "/data/heartrisk.db" {
					t.Errorf("unexpected artifacts %s %s", settings.ArtifactFormat, settings.BundlePath)
				}
				if settings.InferenceTimeout != 2*time.Second {
					t.Errorf("expected 2s timeout, got %v", settings.InferenceTimeout)
				}
				if settings.Port != 8600 || settings.MetricsEnabled {
					t.Errorf("unexpected server settings port=%d metrics=%v", settings.Port, settings.MetricsEnabled)
				}
				if settings.CacheSize != 0 {
					t.Errorf("expected explicit zero cache size, got %d", settings.CacheSize)
				}
				if settings.Log.Level != "debug" || settings.Log.Console || settings.Log.MaxBackups != 5 {
					t.Errorf("unexpected log settings %+v", settings.Log)
				}
			},
		},
		{
			name: "partial config keeps defaults",
			yamlContent: `
server:
  port: 8700
`,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8700 {
					t.Errorf("expected port 8700, got %d", settings.Port)
				}
				if settings.CacheSize != 256 || !settings.MetricsEnabled {
					t.Errorf("expected defaults to survive, got cache=%d metrics=%v", settings.CacheSize, settings.MetricsEnabled)
				}
			},
		},
		{
			name: "env overrides yaml",
			yamlContent: `
artifacts:
  modelPath: from-yaml.json
server:
  port: 8600
`,
			envOverrides: map[string]string{"PORT": "8800", "MODEL_PATH": "from-env.json"},
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8800 {
					t.Errorf("expected env port 8800, got %d", settings.Port)
				}
				if settings.ModelPath != "from-env.json" {
					t.Errorf("expected env model path, got %s", settings.ModelPath)
				}
			},
		},
		{
			name:        "invalid yaml",
			yamlContent: "artifacts: [unclosed",
			wantErr:     true,
		},
		{
			name: "invalid duration",
			yamlContent: `
artifacts:
  inferenceTimeout: quickly
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}
			t.Setenv("CONFIG_FILE", configPath)

			settings, err := Load()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearTestEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=8900\nCACHE_SIZE=12\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	// godotenv sets real environment variables; restore them after the test.
	t.Setenv("PORT", "")
	t.Setenv("CACHE_SIZE", "")
	os.Unsetenv("PORT")
	os.Unsetenv("CACHE_SIZE")

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Port != 8900 || settings.CacheSize != 12 {
		t.Errorf("expected .env values, got port=%d cache=%d", settings.Port, settings.CacheSize)
	}
}

func TestSettings_ArtifactOptions(t *testing.T) {
	s := Defaults()
	s.ArtifactFormat = FormatRemote
	s.InferenceURL = "http://models:9000"
	s.InferenceTimeout = 2 * time.Second

	opts := s.ArtifactOptions()
	if opts.Format != "remote" || opts.InferenceURL != "http://models:9000" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.ScalerPath != common.DefaultScalerPath || opts.Timeout != 2*time.Second {
		t.Errorf("expected scaler path and timeout to carry over, got %+v", opts)
	}
}

func clearTestEnv(t *testing.T) {
	envVars := []string{
		common.EnvConfigFile, common.EnvArtifactFormat, common.EnvScalerPath,
		common.EnvModelPath, common.EnvBundlePath, common.EnvPythonPath,
		common.EnvInferenceURL, common.EnvInferenceTimeout, common.EnvPort,
		common.EnvMetricsEnabled, common.EnvCacheSize, common.EnvLogLevel,
		common.EnvLogFile, common.EnvLogMaxSizeMB, common.EnvLogMaxBackups,
		common.EnvLogConsole,
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}
}
