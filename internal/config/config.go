package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/instance"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

// DefaultPath is where commands look for the configuration file.
const DefaultPath = "lattice.yml"

// RedisConfig specifies the lattice store connection.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"` // Default: redis://localhost:6379
}

// SealConfig specifies sealing policy.
type SealConfig struct {
	RequiredLevel    *int   `yaml:"required_level,omitempty"` // Minimum authority level allowed to seal (default = 4)
	DefaultAuthority string `yaml:"default_authority,omitempty"`
	DefaultWitness   string `yaml:"default_witness,omitempty"`
}

// RecommendConfig specifies formation recommendation behavior.
type RecommendConfig struct {
	MaxCandidates *int `yaml:"max_candidates,omitempty"` // Top-k cap on returned candidates (default = 5)
}

// LatticeConfig represents the top-level lattice.yml configuration
type LatticeConfig struct {
	Version   string           `yaml:"version"`
	Instance  string           `yaml:"instance"`
	Redis     *RedisConfig     `yaml:"redis,omitempty"`
	Seal      *SealConfig      `yaml:"seal,omitempty"`
	Recommend *RecommendConfig `yaml:"recommend,omitempty"`
}

// Validate performs strict validation on the configuration.
// Every rule is checked; failures are accumulated into a single error so a
// bad file surfaces all its problems at once. Defaults are applied for
// omitted optional sections.
func (c *LatticeConfig) Validate() error {
	var problems []string

	if c.Version != "1.0" {
		problems = append(problems, fmt.Sprintf("unsupported version: %s (expected: 1.0)", c.Version))
	}

	if c.Instance == "" {
		problems = append(problems, "instance name is required")
	} else if err := instance.ValidateName(c.Instance); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = instance.DefaultRedisURL()
	}

	if c.Seal == nil {
		c.Seal = &SealConfig{}
	}
	if c.Seal.RequiredLevel == nil {
		defaultLevel := lattice.AuthorityLevel(lattice.AuthorityFlameIntelligence)
		c.Seal.RequiredLevel = &defaultLevel
	}
	if *c.Seal.RequiredLevel < 1 {
		problems = append(problems, fmt.Sprintf("seal.required_level must be >= 1, got %d", *c.Seal.RequiredLevel))
	}
	if c.Seal.DefaultAuthority != "" && lattice.AuthorityLevel(c.Seal.DefaultAuthority) == 0 {
		problems = append(problems, fmt.Sprintf("seal.default_authority is not a recognized authority: %s", c.Seal.DefaultAuthority))
	}

	if c.Recommend == nil {
		c.Recommend = &RecommendConfig{}
	}
	if c.Recommend.MaxCandidates == nil {
		defaultCandidates := 5
		c.Recommend.MaxCandidates = &defaultCandidates
	}
	if *c.Recommend.MaxCandidates < 1 {
		problems = append(problems, fmt.Sprintf("recommend.max_candidates must be >= 1, got %d", *c.Recommend.MaxCandidates))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// Load reads and validates lattice.yml from the specified path
func Load(path string) (*LatticeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config LatticeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a starter configuration for a new instance, used by the
// init command.
func Default(instanceName string) *LatticeConfig {
	requiredLevel := lattice.AuthorityLevel(lattice.AuthorityFlameIntelligence)
	maxCandidates := 5

	return &LatticeConfig{
		Version:  "1.0",
		Instance: instanceName,
		Redis: &RedisConfig{
			URL: instance.DefaultRedisURL(),
		},
		Seal: &SealConfig{
			RequiredLevel: &requiredLevel,
		},
		Recommend: &RecommendConfig{
			MaxCandidates: &maxCandidates,
		},
	}
}

// Write marshals the configuration to YAML at the given path. Fails if the
// file already exists.
func Write(path string, config *LatticeConfig) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
