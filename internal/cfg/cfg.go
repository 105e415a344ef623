// Package cfg loads service configuration from a YAML file pointed at by
// CONFIG_FILE, with environment variables taking precedence, or from the
// environment alone when no file is given.
package cfg

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ListenPort  int
	MetricsPort int

	ModelPath string
	DataPath  string

	ModelWeight   float64
	HistoryWeight float64
	MaxDistance   float64
	StatsWindow   int

	MaxBatchSize       int
	MaxHistoryPatterns int
	CompareMaxDistance float64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ConfigFile struct {
	Server struct {
		ListenPort      int    `yaml:"listenPort"`
		MetricsPort     int    `yaml:"metricsPort"`
		ReadTimeout     string `yaml:"readTimeout"`
		WriteTimeout    string `yaml:"writeTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Model struct {
		Path          string  `yaml:"path"`
		ModelWeight   float64 `yaml:"modelWeight"`
		HistoryWeight float64 `yaml:"historyWeight"`
		MaxDistance   float64 `yaml:"maxDistance"`
		StatsWindow   int     `yaml:"statsWindow"`
	} `yaml:"model"`

	API struct {
		MaxBatchSize       int     `yaml:"maxBatchSize"`
		MaxHistoryPatterns int     `yaml:"maxHistoryPatterns"`
		CompareMaxDistance float64 `yaml:"compareMaxDistance"`
	} `yaml:"api"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Server.ReadTimeout)
	if err != nil {
		readTimeout = 10 * time.Second
	}

	writeTimeout, err := time.ParseDuration(config.Server.WriteTimeout)
	if err != nil {
		writeTimeout = 10 * time.Second
	}

	shutdownTimeout, err := time.ParseDuration(config.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 15 * time.Second
	}

	settings := Settings{
		ListenPort:         getIntFromEnvOrConfig("LISTEN_PORT", config.Server.ListenPort, 8000),
		MetricsPort:        getIntFromEnvOrConfig("METRICS_PORT", config.Server.MetricsPort, 9090),
		ModelPath:          getEnvOrDefault("MODEL_PATH", config.Model.Path),
		DataPath:           getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ModelWeight:        getFloatFromEnvOrConfig("MODEL_WEIGHT", config.Model.ModelWeight, 0.7),
		HistoryWeight:      getFloatFromEnvOrConfig("HISTORY_WEIGHT", config.Model.HistoryWeight, 0.3),
		MaxDistance:        getFloatFromEnvOrConfig("MAX_DISTANCE", config.Model.MaxDistance, 100),
		StatsWindow:        getIntFromEnvOrConfig("STATS_WINDOW", config.Model.StatsWindow, 1000),
		MaxBatchSize:       getIntFromEnvOrConfig("MAX_BATCH_SIZE", config.API.MaxBatchSize, 50),
		MaxHistoryPatterns: getIntFromEnvOrConfig("MAX_HISTORY_PATTERNS", config.API.MaxHistoryPatterns, 10),
		CompareMaxDistance: getFloatFromEnvOrConfig("COMPARE_MAX_DISTANCE", config.API.CompareMaxDistance, 300),
		ReadTimeout:        getDurationOrDefault("READ_TIMEOUT", readTimeout),
		WriteTimeout:       getDurationOrDefault("WRITE_TIMEOUT", writeTimeout),
		ShutdownTimeout:    getDurationOrDefault("SHUTDOWN_TIMEOUT", shutdownTimeout),
	}

	if settings.ModelPath == "" {
		return Settings{}, fmt.Errorf("model path is required (model.path or MODEL_PATH)")
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	modelPath, err := getEnvRequired("MODEL_PATH")
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		ListenPort:         getIntOrDefault("LISTEN_PORT", 8000),
		MetricsPort:        getIntOrDefault("METRICS_PORT", 9090),
		ModelPath:          modelPath,
		DataPath:           os.Getenv("DATA_PATH"), // optional
		ModelWeight:        getFloatOrDefault("MODEL_WEIGHT", 0.7),
		HistoryWeight:      getFloatOrDefault("HISTORY_WEIGHT", 0.3),
		MaxDistance:        getFloatOrDefault("MAX_DISTANCE", 100),
		StatsWindow:        getIntOrDefault("STATS_WINDOW", 1000),
		MaxBatchSize:       getIntOrDefault("MAX_BATCH_SIZE", 50),
		MaxHistoryPatterns: getIntOrDefault("MAX_HISTORY_PATTERNS", 10),
		CompareMaxDistance: getFloatOrDefault("COMPARE_MAX_DISTANCE", 300),
		ReadTimeout:        getDurationOrDefault("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:       getDurationOrDefault("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    getDurationOrDefault("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is missing", key)
	}
	return v, nil
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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}

	// Validate ports
	if settings.ListenPort < 1024 || settings.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1024 and 65535, got %d", settings.ListenPort)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ListenPort == settings.MetricsPort {
		return fmt.Errorf("listen port and metrics port must differ, both are %d", settings.ListenPort)
	}

	// Validate fusion weights
	if settings.ModelWeight < 0 || settings.ModelWeight > 1 {
		return fmt.Errorf("model weight must be between 0 and 1, got %f", settings.ModelWeight)
	}
	if settings.HistoryWeight < 0 || settings.HistoryWeight > 1 {
		return fmt.Errorf("history weight must be between 0 and 1, got %f", settings.HistoryWeight)
	}
	if math.Abs(settings.ModelWeight+settings.HistoryWeight-1.0) > 1e-9 {
		return fmt.Errorf("model and history weights must sum to 1, got %f", settings.ModelWeight+settings.HistoryWeight)
	}

	// Validate distance scales
	if settings.MaxDistance <= 0 || settings.MaxDistance > 10000 {
		return fmt.Errorf("max distance must be between 0 and 10000, got %f", settings.MaxDistance)
	}
	if settings.CompareMaxDistance <= 0 || settings.CompareMaxDistance > 10000 {
		return fmt.Errorf("compare max distance must be between 0 and 10000, got %f", settings.CompareMaxDistance)
	}

	// Validate integer values
	if settings.StatsWindow <= 0 || settings.StatsWindow > 100000 {
		return fmt.Errorf("stats window must be between 1 and 100000, got %d", settings.StatsWindow)
	}
	if settings.MaxBatchSize <= 0 || settings.MaxBatchSize > 1000 {
		return fmt.Errorf("max batch size must be between 1 and 1000, got %d", settings.MaxBatchSize)
	}
	if settings.MaxHistoryPatterns <= 0 || settings.MaxHistoryPatterns > 100 {
		return fmt.Errorf("max history patterns must be between 1 and 100, got %d", settings.MaxHistoryPatterns)
	}

	// Validate timeouts
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 1m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 5m, got %v", settings.ShutdownTimeout)
	}

	return nil
}
