package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"heart-risk/internal/common"
	"heart-risk/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Artifact formats.
const (
	FormatJSON   = ml.FormatJSON
	FormatBundle = ml.FormatBundle
	FormatPickle = ml.FormatPickle
	FormatRemote = ml.FormatRemote
)

type Settings struct {
	ArtifactFormat   string
	ScalerPath       string
	ModelPath        string
	BundlePath       string
	PythonPath       string
	InferenceURL     string
	InferenceTimeout time.Duration
	Port             int
	MetricsEnabled   bool
	CacheSize        int
	Log              LogSettings
}

type LogSettings struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    bool
}

type ConfigFile struct {
	Artifacts struct {
		Format           string `yaml:"format"`
		ScalerPath       string `yaml:"scalerPath"`
		ModelPath        string `yaml:"modelPath"`
		BundlePath       string `yaml:"bundlePath"`
		PythonPath       string `yaml:"pythonPath"`
		InferenceURL     string `yaml:"inferenceURL"`
		InferenceTimeout string `yaml:"inferenceTimeout"`
	} `yaml:"artifacts"`

	Server struct {
		Port    int   `yaml:"port"`
		Metrics *bool `yaml:"metrics"`
	} `yaml:"server"`

	Cache struct {
		Size *int `yaml:"size"`
	} `yaml:"cache"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups *int   `yaml:"maxBackups"`
		Console    *bool  `yaml:"console"`
	} `yaml:"log"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		ArtifactFormat:   common.DefaultArtifactFormat,
		ScalerPath:       common.DefaultScalerPath,
		ModelPath:        common.DefaultModelPath,
		BundlePath:       common.DefaultBundlePath,
		InferenceTimeout: common.DefaultInferenceTimeout,
		Port:             common.DefaultPort,
		MetricsEnabled:   true,
		CacheSize:        common.DefaultCacheSize,
		Log: LogSettings{
			Level:      common.DefaultLogLevel,
			MaxSizeMB:  common.DefaultLogMaxSizeMB,
			MaxBackups: common.DefaultLogMaxBackups,
			Console:    true,
		},
	}
}

// ArtifactOptions returns the loader options for the configured format.
func (s Settings) ArtifactOptions() ml.LoadOptions {
	return ml.LoadOptions{
		Format:       s.ArtifactFormat,
		ScalerPath:   s.ScalerPath,
		ModelPath:    s.ModelPath,
		BundlePath:   s.BundlePath,
		PythonPath:   s.PythonPath,
		InferenceURL: s.InferenceURL,
		Timeout:      s.InferenceTimeout,
	}
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE if set,
// then environment variables, which win over both.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	settings := Defaults()
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		if err := applyYAML(&settings, configPath); err != nil {
			return Settings{}, err
		}
	}
	applyEnv(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyYAML(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	a := config.Artifacts
	s.ArtifactFormat = stringOr(a.Format, s.ArtifactFormat)
	s.ScalerPath = stringOr(a.ScalerPath, s.ScalerPath)
	s.ModelPath = stringOr(a.ModelPath, s.ModelPath)
	s.BundlePath = stringOr(a.BundlePath, s.BundlePath)
	s.PythonPath = stringOr(a.PythonPath, s.PythonPath)
	s.InferenceURL = stringOr(a.InferenceURL, s.InferenceURL)
	if a.InferenceTimeout != "" {
		d, err := time.ParseDuration(a.InferenceTimeout)
		if err != nil {
			return fmt.Errorf("invalid artifacts.inferenceTimeout %q: %w", a.InferenceTimeout, err)
		}
		s.InferenceTimeout = d
	}

	if config.Server.Port != 0 {
		s.Port = config.Server.Port
	}
	if config.Server.Metrics != nil {
		s.MetricsEnabled = *config.Server.Metrics
	}
	if config.Cache.Size != nil {
		s.CacheSize = *config.Cache.Size
	}

	l := config.Log
	s.Log.Level = stringOr(l.Level, s.Log.Level)
	s.Log.File = stringOr(l.File, s.Log.File)
	if l.MaxSizeMB != 0 {
		s.Log.MaxSizeMB = l.MaxSizeMB
	}
	if l.MaxBackups != nil {
		s.Log.MaxBackups = *l.MaxBackups
	}
	if l.Console != nil {
		s.Log.Console = *l.Console
	}
	return nil
}

func applyEnv(s *Settings) {
	s.ArtifactFormat = strings.ToLower(getEnvOrDefault(common.EnvArtifactFormat, s.ArtifactFormat))
	s.ScalerPath = getEnvOrDefault(common.EnvScalerPath, s.ScalerPath)
	s.ModelPath = getEnvOrDefault(common.EnvModelPath, s.ModelPath)
	s.BundlePath = getEnvOrDefault(common.EnvBundlePath, s.BundlePath)
	s.PythonPath = getEnvOrDefault(common.EnvPythonPath, s.PythonPath)
	s.InferenceURL = getEnvOrDefault(common.EnvInferenceURL, s.InferenceURL)
	s.InferenceTimeout = getDurationOrDefault(common.EnvInferenceTimeout, s.InferenceTimeout)
	s.Port = getIntOrDefault(common.EnvPort, s.Port)
	s.MetricsEnabled = getBoolOrDefault(common.EnvMetricsEnabled, s.MetricsEnabled)
	s.CacheSize = getIntOrDefault(common.EnvCacheSize, s.CacheSize)
	s.Log.Level = getEnvOrDefault(common.EnvLogLevel, s.Log.Level)
	s.Log.File = getEnvOrDefault(common.EnvLogFile, s.Log.File)
	s.Log.MaxSizeMB = getIntOrDefault(common.EnvLogMaxSizeMB, s.Log.MaxSizeMB)
	s.Log.MaxBackups = getIntOrDefault(common.EnvLogMaxBackups, s.Log.MaxBackups)
	s.Log.Console = getBoolOrDefault(common.EnvLogConsole, s.Log.Console)
}

func stringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(s *Settings) error {
	switch s.ArtifactFormat {
	case FormatJSON, FormatPickle:
		if s.ScalerPath == "" || s.ModelPath == "" {
			return fmt.Errorf("%s artifacts need both scaler and model paths", s.ArtifactFormat)
		}
	case FormatBundle:
		if s.BundlePath == "" {
			return fmt.Errorf("bundle artifacts need a bundle path")
		}
	case FormatRemote:
		if s.InferenceURL == "" {
			return fmt.Errorf("remote artifacts need %s", common.EnvInferenceURL)
		}
		if s.ScalerPath == "" {
			return fmt.Errorf("remote artifacts need a local scaler path")
		}
	default:
		return fmt.Errorf("artifact format must be one of json, bundle, pickle, remote, got %q", s.ArtifactFormat)
	}

	if s.InferenceTimeout < common.MinInferenceTimeout || s.InferenceTimeout > common.MaxInferenceTimeout {
		return fmt.Errorf("inference timeout must be between %v and %v, got %v",
			common.MinInferenceTimeout, common.MaxInferenceTimeout, s.InferenceTimeout)
	}
	if s.Port < common.MinPort || s.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, s.Port)
	}
	if s.CacheSize < 0 || s.CacheSize > common.MaxCacheSize {
		return fmt.Errorf("cache size must be between 0 and %d, got %d", common.MaxCacheSize, s.CacheSize)
	}

	if _, err := zerolog.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s.Log.Level, err)
	}
	if s.Log.MaxSizeMB < 1 || s.Log.MaxSizeMB > common.MaxLogSizeMB {
		return fmt.Errorf("log max size must be between 1 and %d MB, got %d", common.MaxLogSizeMB, s.Log.MaxSizeMB)
	}
	if s.Log.MaxBackups < 0 || s.Log.MaxBackups > common.MaxLogBackups {
		return fmt.Errorf("log max backups must be between 0 and %d, got %d", common.MaxLogBackups, s.Log.MaxBackups)
	}
	if !s.Log.Console && s.Log.File == "" {
		return fmt.Errorf("logging needs the console, a log file, or both")
	}

	return nil
}
