package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.ServerPort)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.StoreDriver)
	}
	if cfg.WorkerInterval != 30*time.Second {
		t.Fatalf("expected 30s worker interval, got %v", cfg.WorkerInterval)
	}
	if cfg.RetryMaxDelay != time.Hour {
		t.Fatalf("expected 1h max retry delay, got %v", cfg.RetryMaxDelay)
	}
	if cfg.PipelineActor != "promotion-pipeline" {
		t.Fatalf("expected default pipeline actor, got %q", cfg.PipelineActor)
	}
	if !cfg.WorkerEnabled || !cfg.SweepEnabled {
		t.Fatal("expected workers enabled by default")
	}
	if cfg.ServerAddr() != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.ServerAddr())
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WORKER_BATCH", "25")
	t.Setenv("SWEEP_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ServerPort != 9090 || cfg.WorkerBatch != 25 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SweepEnabled {
		t.Fatal("expected sweep disabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad int", "SERVER_PORT", "eighty", "parse env:"},
		{"unknown driver", "STORE_DRIVER", "mysql", "unknown STORE_DRIVER"},
		{"postgres without url", "STORE_DRIVER", "postgres", "DATABASE_URL"},
		{"zero rps", "RATE_LIMIT_RPS", "0", "rate limit"},
		{"inverted retry", "RETRY_BASE_DELAY", "2h", "retry delays"},
		{"retry cap", "RETRY_MAX_DELAY", "1000h", "RETRY_MAX_DELAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_EnvFileAndSecret(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("SQLITE_PATH="+filepath.Join(dir, "k.db")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(envFile+".secret", []byte("API_TOKEN=s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MINDKERNEL_ENV", envFile)
	// Registered so t.Setenv restores them after godotenv sets them.
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("API_TOKEN", "")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("API_TOKEN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIToken != "s3cret" {
		t.Fatalf("expected token from secret file, got %q", cfg.APIToken)
	}
	if cfg.SQLitePath != filepath.Join(dir, "k.db") {
		t.Fatalf("unexpected sqlite path %q", cfg.SQLitePath)
	}
}
