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
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)

				assert.Equal(t, []string{
					"Transactional_data_retail_01.csv",
					"Transactional_data_retail_02.csv",
				}, cfg.Data.Sources)
				assert.Equal(t, "StockCode", cfg.Data.ItemColumn)
				assert.Equal(t, "InvoiceDate", cfg.Data.TimestampColumn)
				assert.Equal(t, "Quantity", cfg.Data.QuantityColumn)

				assert.Equal(t, 15, cfg.Forecast.DefaultHorizon)
				assert.Equal(t, 52, cfg.Forecast.MaxHorizon)
				assert.Equal(t, 7, cfg.Forecast.CadenceDays)

				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
data:
  sources:
    - sales.xlsx
  item_column: SKU
forecast:
  default_horizon: 8
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, []string{"sales.xlsx"}, cfg.Data.Sources)
				assert.Equal(t, "SKU", cfg.Data.ItemColumn)
				assert.Equal(t, "InvoiceDate", cfg.Data.TimestampColumn)
				assert.Equal(t, 8, cfg.Forecast.DefaultHorizon)
				assert.Equal(t, 52, cfg.Forecast.MaxHorizon)
			},
		},
		{
			name: "env overrides file",
			file: `
server:
  port: 9090
`,
			env: map[string]string{
				"DEMANDCAST_SERVER_PORT":  "7070",
				"DEMANDCAST_DATA_SOURCES": "a.csv,b.csv",
				"DEMANDCAST_LOGGING_LEVEL": "debug",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.Data.Sources)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "invalid yaml",
			file:    "server: [",
			wantErr: "failed to load config from file",
		},
		{
			name: "no sources",
			file: `
data:
  sources: ["  "]
`,
			wantErr: "at least one data source",
		},
		{
			name: "default horizon above max",
			file: `
forecast:
  default_horizon: 20
  max_horizon: 10
`,
			wantErr: "default horizon must be between 1 and 10",
		},
		{
			name: "max horizon above 52",
			env: map[string]string{
				"DEMANDCAST_FORECAST_MAX_HORIZON": "60",
			},
			wantErr: "max horizon must be between 1 and 52",
		},
		{
			name: "empty column name",
			file: `
data:
  quantity_column: ""
`,
			wantErr: "quantity column name must not be empty",
		},
		{
			name: "invalid port",
			env: map[string]string{
				"DEMANDCAST_SERVER_PORT": "70000",
			},
			wantErr: "invalid server port",
		},
		{
			name: "unknown log output falls back to console",
			file: `
logging:
  output: syslog
`,
			validateCfg: func(t *testing.T, cfg *Config) {
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
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_ConfigEnvVariable(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8181\n")
	t.Setenv("DEMANDCAST_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
