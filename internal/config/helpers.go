package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// Workers returns the number of concurrent workers
func (c *ConfigHelpers) Workers() int {
	return c.config.Workers
}

// WorkDir returns the absolute path to the work directory
func (c *ConfigHelpers) WorkDir() (string, error) {
	return filepath.Abs(c.config.WorkDir)
}

// ConfigDir returns the absolute path of the directory holding <name>.bits trees
func (c *ConfigHelpers) ConfigDir() (string, error) {
	return filepath.Abs(c.config.ConfigDir)
}

// ReportDir returns where missing-requirement reports are written
func (c *ConfigHelpers) ReportDir() string {
	if c.config.ReportDir == "" {
		return "builds"
	}
	return c.config.ReportDir
}

// BitsPathEntries splits the comma separated bits_path, dropping blanks
func (c *ConfigHelpers) BitsPathEntries() []string {
	var entries []string
	for _, p := range strings.Split(c.config.BitsPath, ",") {
		if p = strings.TrimSpace(p); p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// CaseSensitive reports whether capability names are matched exactly
func (c *ConfigHelpers) CaseSensitive() bool {
	return c.config.DepCheck.CaseSensitive
}

// ExcludePrefixes returns the requirement prefixes skipped by the checker
func (c *ConfigHelpers) ExcludePrefixes() []string {
	return c.config.DepCheck.ExcludePrefixes
}

// QueryTimeout returns the per-query deadline, falling back to the default
func (c *ConfigHelpers) QueryTimeout() time.Duration {
	d, err := c.config.QueryTimeout()
	if err != nil {
		return DefaultQueryTimeout
	}
	return d
}

// BuildTimeout returns the rpmbuild deadline, falling back to the default
func (c *ConfigHelpers) BuildTimeout() time.Duration {
	d, err := c.config.BuildTimeout()
	if err != nil {
		return DefaultBuildTimeout
	}
	return d
}

// CreateWorkDir ensures the work directory exists and returns its absolute path
func (c *ConfigHelpers) CreateWorkDir() (string, error) {
	workDir, err := c.WorkDir()
	if err != nil {
		return "", fmt.Errorf("resolving work directory: %w", err)
	}
	if err := createDirIfNotExists(workDir); err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}
	return workDir, nil
}

// Helper function to create directories
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
