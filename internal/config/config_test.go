package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/me/gosweep/internal/publish"
	"github.com/me/gosweep/pkg/model"
)

func TestDefaultRunnerConfig(t *testing.T) {
	cfg := DefaultRunnerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Parallelism != 4 || cfg.MinLaunchInterval != time.Second {
		t.Errorf("parallelism=%d interval=%s", cfg.Parallelism, cfg.MinLaunchInterval)
	}
	if got := cfg.TemplatePath(); got != filepath.Join("workspace", DefaultTemplateName) {
		t.Errorf("TemplatePath() = %q", got)
	}
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosweep.yaml")
	data := `workspace: /srv/epos
template: /srv/epos/custom.properties
command: [java, -Xmx4g, -jar, IEPOS-Tutorial.jar]
parallelism: 8
min_launch_interval: 1500ms
run_timeout: 2h
ledger: sweeps.db
status_addr: 127.0.0.1:9090
publish:
  endpoint: minio:9000
  access_key: k
  secret_key: s
  bucket: sweeps
  prefix: epos
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := DefaultRunnerConfig()
	want.Workspace = "/srv/epos"
	want.Template = "/srv/epos/custom.properties"
	want.Command = []string{"java", "-Xmx4g", "-jar", "IEPOS-Tutorial.jar"}
	want.Parallelism = 8
	want.MinLaunchInterval = 1500 * time.Millisecond
	want.RunTimeout = 2 * time.Hour
	want.Ledger = "sweeps.db"
	want.StatusAddr = "127.0.0.1:9090"
	want.Publish = publish.Config{Endpoint: "minio:9000", AccessKey: "k", SecretKey: "s", Bucket: "sweeps", Prefix: "epos"}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "paralelism: 3\n"},
		{"bad duration", "min_launch_interval: soon\n"},
		{"bad yaml", "workspace: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			os.WriteFile(path, []byte(tt.data), 0o644)
			_, err := Load(path)
			var se *model.SetupError
			if !errors.As(err, &se) {
				t.Fatalf("Load() error = %v, want SetupError", err)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(path, nil, 0o644)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultRunnerConfig(), cfg); diff != "" {
		t.Errorf("empty file changed defaults:\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RunnerConfig)
		wantField string
	}{
		{"zero parallelism", func(c *RunnerConfig) { c.Parallelism = 0 }, "parallelism"},
		{"negative interval", func(c *RunnerConfig) { c.MinLaunchInterval = -time.Second }, "min_launch_interval"},
		{"negative timeout", func(c *RunnerConfig) { c.RunTimeout = -1 }, "run_timeout"},
		{"no command", func(c *RunnerConfig) { c.Command = nil }, "command"},
		{"no workspace", func(c *RunnerConfig) { c.Workspace = "" }, "workspace"},
		{"no params", func(c *RunnerConfig) { c.Params = "" }, "params"},
		{"no report", func(c *RunnerConfig) { c.Report = "" }, "report"},
		{"no analyzer", func(c *RunnerConfig) { c.Analyzer = "" }, "analyzer"},
		{"bad format", func(c *RunnerConfig) { c.LogFormat = "xml" }, "log_format"},
		{"publish without bucket", func(c *RunnerConfig) {
			c.Publish = publish.Config{Endpoint: "minio:9000", AccessKey: "k", SecretKey: "s"}
		}, "publish.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunnerConfig()
			tt.mutate(&cfg)
			var se *model.SetupError
			if err := cfg.Validate(); !errors.As(err, &se) {
				t.Fatalf("Validate() = %v, want SetupError", err)
			}
			if se.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", se.Field, tt.wantField)
			}
		})
	}
}
