package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFile tests the precedence of defaults, file and environment
func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)

				assert.Equal(t, DefaultClusterCount, cfg.Segmentation.ClusterCount)
				assert.Equal(t, int64(1), cfg.Segmentation.SeedStart)
				assert.Equal(t, int64(299), cfg.Segmentation.SeedEnd)
				assert.Equal(t, 0.0, cfg.Segmentation.BaselineScore)

				assert.False(t, cfg.Database.Enabled)
				assert.False(t, cfg.Kafka.Enabled)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
segmentation:
  seed_end: 20
  workers: 4
kafka:
  topic: segments-test
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, int64(20), cfg.Segmentation.SeedEnd)
				assert.Equal(t, 4, cfg.Segmentation.Workers)
				assert.Equal(t, "segments-test", cfg.Kafka.Topic)
				// untouched keys keep their defaults
				assert.Equal(t, DefaultClusterCount, cfg.Segmentation.ClusterCount)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "env overrides file",
			file: "segmentation:\n  seed_end: 20\n",
			env: map[string]string{
				"SEGMENT_SEGMENTATION_SEED_END": "40",
				"SEGMENT_KAFKA_BROKERS":         "a:9092,b:9092",
				"SEGMENT_LOGGING_LEVEL":         "DEBUG",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(40), cfg.Segmentation.SeedEnd)
				assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "empty seed range is rejected",
			env:     map[string]string{"SEGMENT_SEGMENTATION_SEED_START": "10", "SEGMENT_SEGMENTATION_SEED_END": "5"},
			wantErr: true,
		},
		{
			name:    "database without url is rejected",
			env:     map[string]string{"SEGMENT_DATABASE_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			file:    "server:\n  port: 70000\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [\n",
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"SEGMENT_SERVER_PORT": "eighty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadUsesConfigEnv(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 7070\n")
	t.Setenv("SEGMENT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{
			name:    "single cluster",
			mutate:  func(c *Config) { c.Segmentation.ClusterCount = 1 },
			wantErr: true,
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Segmentation.Workers = -1 },
			wantErr: true,
		},
		{
			name:    "baseline outside silhouette range",
			mutate:  func(c *Config) { c.Segmentation.BaselineScore = 2 },
			wantErr: true,
		},
		{
			name:    "kafka without brokers",
			mutate: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.Brokers = nil
			},
			wantErr: true,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "ping period must be shorter than pong wait",
			mutate:  func(c *Config) { c.WebSocket.PingPeriod = 2 * c.WebSocket.PongWait },
			wantErr: true,
		},
		{
			name: "file output fills in a log path",
			mutate: func(c *Config) {
				c.Logging.Output = "both"
				c.Logging.FilePath = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if cfg.Logging.Output != "console" {
				assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
			}
		})
	}
}
