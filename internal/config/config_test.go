package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantData := DataConfig{
		CSVFile:     "pizza_sales.csv",
		CacheDir:    ".cache",
		SkipInvalid: false,
		LoadTimeout: 2 * time.Minute,
	}
	if diff := cmp.Diff(wantData, cfg.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}

	wantAnalytics := AnalyticsConfig{TopN: 5, IngredientTopN: 10, MemoSize: 128}
	if diff := cmp.Diff(wantAnalytics, cfg.Analytics); diff != "" {
		t.Errorf("Analytics mismatch (-want +got):\n%s", diff)
	}
	if cfg.Address() != "localhost:8084" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CSV_FILE", "/data/sales.csv")
	t.Setenv("DATA_SKIP_INVALID_ROWS", "true")
	t.Setenv("ANALYTICS_TOP_N", "3")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Data.CSVFile != "/data/sales.csv" || !cfg.Data.SkipInvalid || cfg.Analytics.TopN != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CSV_FILE=from_dotenv.csv\nLOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The process environment wins over .env.
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CSV_FILE", "")
	os.Unsetenv("CSV_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Data.CSVFile != "from_dotenv.csv" {
		t.Errorf("CSVFile = %q", cfg.Data.CSVFile)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logger.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"port", "SERVER_PORT", "70000", "server port"},
		{"log level", "LOG_LEVEL", "verbose", "invalid log level"},
		{"log format", "LOG_FORMAT", "xml", "invalid log format"},
		{"memo size", "ANALYTICS_MEMO_SIZE", "0", "memo size"},
		{"top n", "ANALYTICS_TOP_N", "-1", "top-N"},
		{"rate limit", "SECURITY_RATE_LIMIT_RPS", "0", "rate limit RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
