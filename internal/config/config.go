package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/config/validate"
	"github.com/open-edge-platform/rpm-depcheck/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
)

const (
	ConfigFileName = "rpm-depcheck.yml"

	DefaultWorkers      = 4
	DefaultQueryTimeout = 30 * time.Second
	DefaultBuildTimeout = 300 * time.Second

	BackendHeader = "header"
	BackendRPM    = "rpm"
)

// Environment variables that override the config file.
const (
	EnvBitsPath  = "BITS_PATH"
	EnvConfigDir = "BITS_CONFIG_DIR"
	EnvWorkDir   = "BITS_WORK_DIR"
	EnvLogLevel  = "RPM_DEPCHECK_LOG_LEVEL"
)

// GlobalConfig holds tool-wide settings.
type GlobalConfig struct {
	Workers   int            `yaml:"workers"`
	WorkDir   string         `yaml:"work_dir"`
	ConfigDir string         `yaml:"config_dir"`
	BitsPath  string         `yaml:"bits_path"`
	ReportDir string         `yaml:"report_dir"`
	Logging   LoggingConfig  `yaml:"logging"`
	DepCheck  DepCheckConfig `yaml:"depcheck"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DepCheckConfig controls how requirements are matched and packages queried.
// Capability names are case folded unless CaseSensitive is set.
type DepCheckConfig struct {
	CaseSensitive   bool     `yaml:"case_sensitive"`
	ExcludePrefixes []string `yaml:"exclude_prefixes"`
	QueryTimeout    string   `yaml:"query_timeout"`
	BuildTimeout    string   `yaml:"build_timeout"`
	Keyring         string   `yaml:"keyring"`
	Backend         string   `yaml:"backend"`
}

// DefaultGlobalConfig returns the built-in defaults.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:   DefaultWorkers,
		WorkDir:   "./workspace",
		ConfigDir: ".",
		ReportDir: "builds",
		Logging: LoggingConfig{
			Level: "info",
		},
		DepCheck: DepCheckConfig{
			CaseSensitive:   false,
			ExcludePrefixes: append([]string(nil), rpmutils.DefaultExcludePrefixes...),
			QueryTimeout:    DefaultQueryTimeout.String(),
			BuildTimeout:    DefaultBuildTimeout.String(),
			Backend:         BackendHeader,
		},
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig *GlobalConfig
)

// Global returns the process configuration, or defaults if none was set.
func Global() *GlobalConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalConfig == nil {
		return DefaultGlobalConfig()
	}
	return globalConfig
}

// SetGlobal installs cfg as the process configuration.
func SetGlobal(cfg *GlobalConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ConfigSearchPaths lists where FindConfigFile looks, in order.
func ConfigSearchPaths() []string {
	paths := []string{ConfigFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "rpm-depcheck", ConfigFileName))
	}
	return append(paths, filepath.Join("/etc", "rpm-depcheck", ConfigFileName))
}

// FindConfigFile returns the first existing config file or "".
func FindConfigFile() string {
	for _, path := range ConfigSearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadGlobalConfig reads path, or the first file FindConfigFile finds when
// path is empty. Without any file the defaults are used. Environment
// overrides are applied last.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	log := logger.Logger()

	cfg := DefaultGlobalConfig()
	if path == "" {
		path = FindConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := parseGlobalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		log.Debugf("loaded configuration from %s", path)
	} else {
		log.Debugf("no configuration file found, using defaults")
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseGlobalConfig(data []byte, cfg *GlobalConfig) error {
	if err := validate.ValidateConfigYAML(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// ApplyEnvOverrides copies the BITS_* and log level variables into cfg.
func (c *GlobalConfig) ApplyEnvOverrides() {
	if v, ok := os.LookupEnv(EnvBitsPath); ok {
		c.BitsPath = v
	}
	if v := os.Getenv(EnvConfigDir); v != "" {
		c.ConfigDir = v
	}
	if v := os.Getenv(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks values the schema cannot express.
func (c *GlobalConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.QueryTimeout(); err != nil {
		return err
	}
	if _, err := c.BuildTimeout(); err != nil {
		return err
	}
	switch c.DepCheck.Backend {
	case "", BackendHeader, BackendRPM:
	default:
		return fmt.Errorf("unknown query backend %q (expected %s or %s)", c.DepCheck.Backend, BackendHeader, BackendRPM)
	}
	return nil
}

// QueryTimeout parses depcheck.query_timeout.
func (c *GlobalConfig) QueryTimeout() (time.Duration, error) {
	return parseDuration("depcheck.query_timeout", c.DepCheck.QueryTimeout, DefaultQueryTimeout)
}

// BuildTimeout parses depcheck.build_timeout.
func (c *GlobalConfig) BuildTimeout() (time.Duration, error) {
	return parseDuration("depcheck.build_timeout", c.DepCheck.BuildTimeout, DefaultBuildTimeout)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}
