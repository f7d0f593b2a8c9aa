package common

import "time"

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvArtifactFormat   = "ARTIFACT_FORMAT"
	EnvScalerPath       = "SCALER_PATH"
	EnvModelPath        = "MODEL_PATH"
	EnvBundlePath       = "BUNDLE_PATH"
	EnvPythonPath       = "PYTHON_PATH"
	EnvInferenceURL     = "INFERENCE_URL"
	EnvInferenceTimeout = "INFERENCE_TIMEOUT"
	EnvPort             = "PORT"
	EnvMetricsEnabled   = "METRICS_ENABLED"
	EnvCacheSize        = "CACHE_SIZE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFile          = "LOG_FILE"
	EnvLogMaxSizeMB     = "LOG_MAX_SIZE_MB"
	EnvLogMaxBackups    = "LOG_MAX_BACKUPS"
	EnvLogConsole       = "LOG_CONSOLE"
)

// Configuration defaults
const (
	DefaultArtifactFormat   = "json"
	DefaultScalerPath       = "artifacts/scaler.json"
	DefaultModelPath        = "artifacts/model.json"
	DefaultBundlePath       = "artifacts/heartrisk.db"
	DefaultInferenceTimeout = 5 * time.Second
	DefaultPort             = 8501
	DefaultCacheSize        = 256
	DefaultLogLevel         = "info"
	DefaultLogMaxSizeMB     = 50
	DefaultLogMaxBackups    = 3
)

// Validation constants
const (
	MinInferenceTimeout = 100 * time.Millisecond
	MaxInferenceTimeout = time.Minute
	MinPort             = 1024
	MaxPort             = 65535
	MaxCacheSize        = 100000
	MaxLogSizeMB        = 1024
	MaxLogBackups       = 100
)

// Request headers
const (
	HeaderRequestID = "X-Request-ID"
)
