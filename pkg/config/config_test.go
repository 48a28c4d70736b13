package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
environment: test
data:
  source: csv
  calendar_path: calendar.csv
  prices_path: prices.csv
  sales_path: sales.csv
model:
  type: linear
  path: weights.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Forecast.DefaultHorizon != 28 || cfg.Forecast.MaxHorizon != 56 {
		t.Errorf("horizons = %d/%d, want 28/56", cfg.Forecast.DefaultHorizon, cfg.Forecast.MaxHorizon)
	}
	if cfg.Forecast.OnMissingLag != "zero" {
		t.Errorf("on_missing_lag = %q, want zero", cfg.Forecast.OnMissingLag)
	}
	if cfg.Batch.Workers != 4 || cfg.Batch.QueueName != "forecast_jobs" {
		t.Errorf("batch defaults = %d/%q", cfg.Batch.Workers, cfg.Batch.QueueName)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path = %q, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"missing environment": `
data: {source: csv, calendar_path: a, prices_path: b, sales_path: c}
model: {type: linear, path: w}
`,
		"unknown data source": `
environment: test
data: {source: sqlite}
model: {type: linear, path: w}
`,
		"csv without paths": `
environment: test
data: {source: csv}
model: {type: linear, path: w}
`,
		"linear without path": `
environment: test
data: {source: csv, calendar_path: a, prices_path: b, sales_path: c}
model: {type: linear}
`,
		"http without url": `
environment: test
data: {source: csv, calendar_path: a, prices_path: b, sales_path: c}
model: {type: http}
`,
		"max below default horizon": `
environment: test
data: {source: csv, calendar_path: a, prices_path: b, sales_path: c}
model: {type: linear, path: w}
forecast: {default_horizon: 28, max_horizon: 14}
`,
		"ingest without feed url": `
environment: test
data: {source: csv, calendar_path: a, prices_path: b, sales_path: c}
model: {type: linear, path: w}
ingest: {enabled: true, backend: kafka}
`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MODEL_PATH", "/opt/weights.json")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STORES", "CA_1,TX_1")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv failed: %v", err)
	}
	if cfg.Model.Path != "/opt/weights.json" {
		t.Errorf("model path = %q", cfg.Model.Path)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Ingest.Stores) != 2 || cfg.Ingest.Stores[1] != "TX_1" {
		t.Errorf("stores = %v", cfg.Ingest.Stores)
	}
}
