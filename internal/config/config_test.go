package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "verbose"
	cfg.Solver.VolUpper = 0
	cfg.Server.Port = 0
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1", "proxy.local"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "vol_lower < vol_upper", "server: port", `"proxy.local"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestModeRequirements(t *testing.T) {
	cases := []struct {
		mode     string
		archive  bool
		postgres bool
		s3       bool
	}{
		{"calc", false, false, false},
		{"server", false, true, false},
		{"archive", false, true, true},
		{"full", false, true, false},
		{"full", true, true, true},
	}
	for _, tc := range cases {
		cfg := Defaults()
		cfg.Mode = tc.mode
		cfg.Archive.Enabled = tc.archive
		if got := cfg.NeedsPostgres(); got != tc.postgres {
			t.Errorf("%s: NeedsPostgres = %v", tc.mode, got)
		}
		if got := cfg.NeedsS3(); got != tc.s3 {
			t.Errorf("%s archive=%v: NeedsS3 = %v", tc.mode, tc.archive, got)
		}
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "optionlab.toml")
	body := `
mode = "calc"

[rate]
default = 0.031

[redis]
quote_ttl = "90s"

[solver]
max_iterations = 50
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPTIONLAB_LOG_LEVEL", "debug")
	t.Setenv("OPTIONLAB_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "calc" || cfg.Rate.Default != 0.031 || cfg.Solver.MaxIterations != 50 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Redis.QuoteTTL.Duration != 90*time.Second {
		t.Errorf("quote_ttl: got %v", cfg.Redis.QuoteTTL.Duration)
	}
	if cfg.Solver.Tolerance != 1e-6 {
		t.Errorf("unset solver fields should keep defaults, got tolerance %v", cfg.Solver.Tolerance)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("env override not applied: %q", cfg.LogLevel)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "secret"
	cfg.Redis.URL = "redis://:pw@cache:6379/0"
	cfg.Notify.Events = []string{"error"}

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != redacted || out.Server.APIKey != redacted || out.Redis.URL != redacted {
		t.Errorf("secrets not redacted: %+v", out)
	}
	if out.S3.SecretKey != "" {
		t.Errorf("empty secret should stay empty")
	}
	out.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] != "error" {
		t.Errorf("redacted copy aliases the original slice")
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Errorf("original mutated")
	}
}
