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

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars and no file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
				assert.Equal(t, "data/daxsp.csv", cfg.Data.SeedFile)
				assert.Equal(t, []string{"DAX", "SP500"}, cfg.Data.ValidIndices)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.True(t, cfg.Telemetry.EnableMetrics)
				assert.False(t, cfg.Telemetry.EnableTracing)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"DAILYINDEX_SERVER_PORT":         "9090",
				"DAILYINDEX_SERVER_READ_TIMEOUT": "30s",
				"DAILYINDEX_DATA_SEED_FILE":      "/srv/seed.csv",
				"DAILYINDEX_DATA_VALID_INDICES":  "dax, sp500 ,nikkei",
				"DAILYINDEX_LOGGING_LEVEL":       "debug",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "/srv/seed.csv", cfg.Data.SeedFile)
				assert.Equal(t, []string{"DAX", "SP500", "NIKKEI"}, cfg.Data.ValidIndices)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "file overrides defaults and env overrides file",
			env: map[string]string{
				"DAILYINDEX_SERVER_PORT": "7000",
			},
			file: `
server:
  port: 8181
  write_timeout: 45s
data:
  seed_file: seeds/indices.csv
logging:
  output: both
  file_path: /tmp/dailyindex.log
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
				assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "seeds/indices.csv", cfg.Data.SeedFile)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "/tmp/dailyindex.log", cfg.Logging.FilePath)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DAILYINDEX_SERVER_PORT": "70000"},
			wantErr: "invalid server port",
		},
		{
			name:    "reserved index name",
			env:     map[string]string{"DAILYINDEX_DATA_VALID_INDICES": "DAX,all"},
			wantErr: "reserved",
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"DAILYINDEX_SERVER_PORT": "eighty"},
			wantErr: "failed to load config from env",
		},
		{
			name:    "malformed file",
			file:    "server: [",
			wantErr: "failed to load config from file",
		},
		{
			name: "unknown log format falls back to json",
			env:  map[string]string{"DAILYINDEX_LOGGING_FORMAT": "xml", "DAILYINDEX_LOGGING_OUTPUT": "syslog"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
			},
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
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8123\n")
	t.Setenv("DAILYINDEX_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestSeedPath(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(seed, []byte("Date,DAX\n"), 0644))

	cfg := Default()
	cfg.Data.SeedFile = seed
	assert.Equal(t, seed, cfg.SeedPath())

	cfg.Data.SeedFile = "does/not/exist.csv"
	assert.Equal(t, "does/not/exist.csv", cfg.SeedPath())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing.csv")))
}
