package sysprovides

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/rpm-depcheck/internal/config/validate"
)

// Seed describes the platform baseline of a build host.
//
// PlatformSeed entries are file paths (looked up by owning package) or
// capability names. Provides are taken verbatim. Every other key becomes an
// environment assignment in the requirement check command.
type Seed struct {
	PlatformSeed     []string               `yaml:"platform_seed"`
	Provides         []string               `yaml:"provides"`
	RequirementCheck string                 `yaml:"requirement_check"`
	Extra            map[string]interface{} `yaml:",inline"`
}

// LoadSeed reads and validates a seed description file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed validates data against the seed schema and decodes it.
func ParseSeed(data []byte) (*Seed, error) {
	if err := validate.ValidateSeedYAML(data); err != nil {
		return nil, err
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return seed, nil
}
