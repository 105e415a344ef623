package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var knownEnvKeys = []string{
	"CONFIG_FILE", "LISTEN_PORT", "METRICS_PORT", "MODEL_PATH", "DATA_PATH",
	"MODEL_WEIGHT", "HISTORY_WEIGHT", "MAX_DISTANCE", "STATS_WINDOW",
	"MAX_BATCH_SIZE", "MAX_HISTORY_PATTERNS", "COMPARE_MAX_DISTANCE",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range knownEnvKeys {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v) // restore after the test
			os.Unsetenv(key)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name: "valid config with required fields",
			envVars: map[string]string{
				"MODEL_PATH": "weights.json",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ModelPath != "weights.json" {
					t.Errorf("expected ModelPath 'weights.json', got %s", settings.ModelPath)
				}
				// Test defaults
				if settings.ListenPort != 8000 {
					t.Errorf("expected default ListenPort 8000, got %d", settings.ListenPort)
				}
				if settings.MetricsPort != 9090 {
					t.Errorf("expected default MetricsPort 9090, got %d", settings.MetricsPort)
				}
				if settings.ModelWeight != 0.7 || settings.HistoryWeight != 0.3 {
					t.Errorf("expected default weights 0.7/0.3, got %f/%f", settings.ModelWeight, settings.HistoryWeight)
				}
				if settings.MaxDistance != 100 {
					t.Errorf("expected default MaxDistance 100, got %f", settings.MaxDistance)
				}
				if settings.MaxBatchSize != 50 {
					t.Errorf("expected default MaxBatchSize 50, got %d", settings.MaxBatchSize)
				}
				if settings.MaxHistoryPatterns != 10 {
					t.Errorf("expected default MaxHistoryPatterns 10, got %d", settings.MaxHistoryPatterns)
				}
				if settings.CompareMaxDistance != 300 {
					t.Errorf("expected default CompareMaxDistance 300, got %f", settings.CompareMaxDistance)
				}
				if settings.DataPath != "" {
					t.Errorf("expected DataPath empty by default, got %s", settings.DataPath)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"MODEL_PATH":     "models/v2.json",
				"DATA_PATH":      "/var/lib/authd",
				"LISTEN_PORT":    "8080",
				"METRICS_PORT":   "9100",
				"MODEL_WEIGHT":   "0.6",
				"HISTORY_WEIGHT": "0.4",
				"MAX_BATCH_SIZE": "25",
				"STATS_WINDOW":   "500",
				"READ_TIMEOUT":   "5s",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ListenPort != 8080 {
					t.Errorf("expected ListenPort 8080, got %d", settings.ListenPort)
				}
				if settings.MetricsPort != 9100 {
					t.Errorf("expected MetricsPort 9100, got %d", settings.MetricsPort)
				}
				if settings.ModelWeight != 0.6 || settings.HistoryWeight != 0.4 {
					t.Errorf("expected weights 0.6/0.4, got %f/%f", settings.ModelWeight, settings.HistoryWeight)
				}
				if settings.MaxBatchSize != 25 {
					t.Errorf("expected MaxBatchSize 25, got %d", settings.MaxBatchSize)
				}
				if settings.StatsWindow != 500 {
					t.Errorf("expected StatsWindow 500, got %d", settings.StatsWindow)
				}
				if settings.ReadTimeout != 5*time.Second {
					t.Errorf("expected ReadTimeout 5s, got %v", settings.ReadTimeout)
				}
				if settings.DataPath != "/var/lib/authd" {
					t.Errorf("expected DataPath '/var/lib/authd', got %s", settings.DataPath)
				}
			},
		},
		{
			name:    "missing model path",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "weights not summing to one",
			envVars: map[string]string{
				"MODEL_PATH":     "weights.json",
				"MODEL_WEIGHT":   "0.7",
				"HISTORY_WEIGHT": "0.7",
			},
			wantErr: true,
		},
		{
			name: "ports colliding",
			envVars: map[string]string{
				"MODEL_PATH":   "weights.json",
				"LISTEN_PORT":  "9090",
				"METRICS_PORT": "9090",
			},
			wantErr: true,
		},
		{
			name: "batch size out of range",
			envVars: map[string]string{
				"MODEL_PATH":     "weights.json",
				"MAX_BATCH_SIZE": "5000",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearTestEnv(t)

	configContent := `
server:
  listenPort: 8100
  metricsPort: 9200
  readTimeout: 8s
  shutdownTimeout: 20s
model:
  path: models/behavioral.json
  modelWeight: 0.8
  historyWeight: 0.2
  maxDistance: 150
  statsWindow: 2000
api:
  maxBatchSize: 20
  maxHistoryPatterns: 5
  compareMaxDistance: 250
system:
  dataPath: /data/audit
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.ListenPort != 8100 {
		t.Errorf("expected ListenPort 8100, got %d", settings.ListenPort)
	}
	if settings.MetricsPort != 9200 {
		t.Errorf("expected MetricsPort 9200, got %d", settings.MetricsPort)
	}
	if settings.ModelPath != "models/behavioral.json" {
		t.Errorf("expected ModelPath from file, got %s", settings.ModelPath)
	}
	if settings.ModelWeight != 0.8 || settings.HistoryWeight != 0.2 {
		t.Errorf("expected weights 0.8/0.2, got %f/%f", settings.ModelWeight, settings.HistoryWeight)
	}
	if settings.MaxDistance != 150 {
		t.Errorf("expected MaxDistance 150, got %f", settings.MaxDistance)
	}
	if settings.StatsWindow != 2000 {
		t.Errorf("expected StatsWindow 2000, got %d", settings.StatsWindow)
	}
	if settings.MaxBatchSize != 20 {
		t.Errorf("expected MaxBatchSize 20, got %d", settings.MaxBatchSize)
	}
	if settings.MaxHistoryPatterns != 5 {
		t.Errorf("expected MaxHistoryPatterns 5, got %d", settings.MaxHistoryPatterns)
	}
	if settings.CompareMaxDistance != 250 {
		t.Errorf("expected CompareMaxDistance 250, got %f", settings.CompareMaxDistance)
	}
	if settings.DataPath != "/data/audit" {
		t.Errorf("expected DataPath '/data/audit', got %s", settings.DataPath)
	}
	if settings.ReadTimeout != 8*time.Second {
		t.Errorf("expected ReadTimeout 8s, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout != 10*time.Second {
		t.Errorf("expected default WriteTimeout 10s, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout != 20*time.Second {
		t.Errorf("expected ShutdownTimeout 20s, got %v", settings.ShutdownTimeout)
	}
}

func TestLoadFromYAML_EnvOverridesFile(t *testing.T) {
	clearTestEnv(t)

	configContent := `
model:
  path: models/behavioral.json
  modelWeight: 0.7
  historyWeight: 0.3
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("MODEL_PATH", "override.json")
	t.Setenv("LISTEN_PORT", "8123")

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.ModelPath != "override.json" {
		t.Errorf("expected env override for ModelPath, got %s", settings.ModelPath)
	}
	if settings.ListenPort != 8123 {
		t.Errorf("expected env override for ListenPort, got %d", settings.ListenPort)
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromYAML_InvalidYAML(t *testing.T) {
	clearTestEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("model: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromYAML_MissingModelPath(t *testing.T) {
	clearTestEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  listenPort: 8000\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)

	if _, err := Load(); err == nil {
		t.Error("expected error when model path is absent everywhere")
	}
}
