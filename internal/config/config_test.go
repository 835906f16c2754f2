package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvBitsPath, EnvConfigDir, EnvWorkDir, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
}

func TestDefaultGlobalConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.DepCheck.CaseSensitive {
		t.Error("case folding should be the default")
	}
	if !reflect.DeepEqual(cfg.DepCheck.ExcludePrefixes, []string{"rpmlib(", "/"}) {
		t.Errorf("unexpected default exclusions %v", cfg.DepCheck.ExcludePrefixes)
	}
	if d, _ := cfg.QueryTimeout(); d != 30*time.Second {
		t.Errorf("QueryTimeout() = %s", d)
	}
	if d, _ := cfg.BuildTimeout(); d != 300*time.Second {
		t.Errorf("BuildTimeout() = %s", d)
	}

	// defaults must not alias the checker's package-level slice
	cfg.DepCheck.ExcludePrefixes[0] = "changed"
	if DefaultGlobalConfig().DepCheck.ExcludePrefixes[0] != "rpmlib(" {
		t.Error("DefaultGlobalConfig shares its exclusion slice")
	}
}

func TestLoadGlobalConfig(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `workers: 2
work_dir: /srv/work
bits_path: "alice, bob"
logging:
  level: warn
depcheck:
  case_sensitive: true
  exclude_prefixes: ["rpmlib("]
  query_timeout: 10s
  backend: rpm
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadGlobalConfig(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfig failed: %v", err)
	}

	if cfg.Workers != 2 || cfg.WorkDir != "/srv/work" || cfg.Logging.Level != "warn" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !cfg.DepCheck.CaseSensitive || cfg.DepCheck.Backend != BackendRPM {
		t.Errorf("depcheck section not applied: %+v", cfg.DepCheck)
	}
	if !reflect.DeepEqual(cfg.DepCheck.ExcludePrefixes, []string{"rpmlib("}) {
		t.Errorf("ExcludePrefixes = %v", cfg.DepCheck.ExcludePrefixes)
	}
	if d, _ := cfg.QueryTimeout(); d != 10*time.Second {
		t.Errorf("QueryTimeout() = %s", d)
	}
	// unset values keep their defaults
	if cfg.ReportDir != "builds" || cfg.DepCheck.BuildTimeout != "5m0s" {
		t.Errorf("defaults lost: report_dir=%q build_timeout=%q", cfg.ReportDir, cfg.DepCheck.BuildTimeout)
	}

	helpers := NewConfigHelpers(cfg)
	if !reflect.DeepEqual(helpers.BitsPathEntries(), []string{"alice", "bob"}) {
		t.Errorf("BitsPathEntries() = %v", helpers.BitsPathEntries())
	}
}

func TestLoadGlobalConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"schema violation", "workers: many\n", "schema validation"},
		{"unknown key", "threads: 3\n", "schema validation"},
		{"negative timeout", "depcheck:\n  query_timeout: 0s\n", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			cfg, err := LoadGlobalConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if cfg != nil {
				t.Error("expected nil config on error")
			}
		})
	}

	if _, err := LoadGlobalConfig(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected an error for an explicit missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBitsPath, "common")
	t.Setenv(EnvConfigDir, "/opt/recipes")
	t.Setenv(EnvWorkDir, "/tmp/bits-work")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg := DefaultGlobalConfig()
	cfg.ApplyEnvOverrides()

	if cfg.BitsPath != "common" || cfg.ConfigDir != "/opt/recipes" || cfg.WorkDir != "/tmp/bits-work" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if got := NewConfigHelpers(cfg).LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q, want debug", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GlobalConfig)
	}{
		{"zero workers", func(c *GlobalConfig) { c.Workers = 0 }},
		{"bad level", func(c *GlobalConfig) { c.Logging.Level = "noisy" }},
		{"bad query timeout", func(c *GlobalConfig) { c.DepCheck.QueryTimeout = "later" }},
		{"bad build timeout", func(c *GlobalConfig) { c.DepCheck.BuildTimeout = "-1m" }},
		{"bad backend", func(c *GlobalConfig) { c.DepCheck.Backend = "yum" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGlobalConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if err := os.WriteFile(ConfigFileName, []byte("workers: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if got := FindConfigFile(); got != ConfigFileName {
		t.Errorf("FindConfigFile() = %q, want %q", got, ConfigFileName)
	}

	paths := ConfigSearchPaths()
	if paths[0] != ConfigFileName || !strings.HasSuffix(paths[len(paths)-1], "/etc/rpm-depcheck/"+ConfigFileName) {
		t.Errorf("unexpected search order %v", paths)
	}
}

func TestGlobal(t *testing.T) {
	t.Cleanup(func() { SetGlobal(nil) })

	if Global() == nil {
		t.Fatal("Global() must fall back to defaults")
	}
	cfg := DefaultGlobalConfig()
	cfg.Workers = 9
	SetGlobal(cfg)
	if Global().Workers != 9 {
		t.Errorf("Global().Workers = %d", Global().Workers)
	}
}

func TestConfigHelpers(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultGlobalConfig()
	cfg.WorkDir = filepath.Join(dir, "nested", "work")
	cfg.DepCheck.QueryTimeout = "broken"

	h := NewConfigHelpers(cfg)
	workDir, err := h.CreateWorkDir()
	if err != nil {
		t.Fatalf("CreateWorkDir failed: %v", err)
	}
	if workDir != cfg.WorkDir {
		t.Errorf("CreateWorkDir() = %q, want %q", workDir, cfg.WorkDir)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		t.Errorf("directory %s was not created", workDir)
	}
	if _, err := h.CreateWorkDir(); err != nil {
		t.Errorf("CreateWorkDir on an existing directory failed: %v", err)
	}

	if h.QueryTimeout() != DefaultQueryTimeout {
		t.Errorf("QueryTimeout() should fall back to default for a broken value")
	}
	if h.Workers() != DefaultWorkers || h.ReportDir() != "builds" || h.CaseSensitive() {
		t.Errorf("unexpected helper values")
	}
	if !reflect.DeepEqual(h.ExcludePrefixes(), []string{"rpmlib(", "/"}) {
		t.Errorf("ExcludePrefixes() = %v", h.ExcludePrefixes())
	}
	cfg.ReportDir = ""
	if h.ReportDir() != "builds" {
		t.Errorf("empty report_dir should fall back to builds, got %q", h.ReportDir())
	}
	if len(h.BitsPathEntries()) != 0 {
		t.Errorf("empty bits_path should have no entries")
	}
}
