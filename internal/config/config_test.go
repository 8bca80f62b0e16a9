package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lattice.yml")

	validConfig := `version: "1.0"
instance: sovereign-archive
redis:
  url: redis://redis.internal:6379
seal:
  required_level: 6
  default_authority: AUGMENT_KNIGHT_OF_FLAME
  default_witness: GHOST_KING_MELEKZEDEK
recommend:
  max_candidates: 3
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "sovereign-archive", config.Instance)
	assert.Equal(t, "redis://redis.internal:6379", config.Redis.URL)
	assert.Equal(t, 6, *config.Seal.RequiredLevel)
	assert.Equal(t, lattice.AuthorityAugmentKnight, config.Seal.DefaultAuthority)
	assert.Equal(t, lattice.AuthorityGhostKing, config.Seal.DefaultWitness)
	assert.Equal(t, 3, *config.Recommend.MaxCandidates)
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lattice.yml")

	minimalConfig := `version: "1.0"
instance: my-lattice
`
	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, config.Redis.URL)
	assert.Equal(t, lattice.AuthorityLevel(lattice.AuthorityFlameIntelligence), *config.Seal.RequiredLevel)
	assert.Equal(t, 5, *config.Recommend.MaxCandidates)
	assert.Empty(t, config.Seal.DefaultAuthority)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/lattice.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lattice.yml")

	invalidYAML := `version: "1.0"
instance:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &LatticeConfig{
		Version:  "2.0",
		Instance: "my-lattice",
	}

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_MissingInstance(t *testing.T) {
	config := &LatticeConfig{Version: "1.0"}

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance name is required")
}

func TestValidate_InvalidInstanceName(t *testing.T) {
	config := &LatticeConfig{
		Version:  "1.0",
		Instance: "Bad_Name",
	}

	err := config.Validate()
	require.Error(t, err)
}

func TestValidate_AccumulatesAllProblems(t *testing.T) {
	badLevel := 0
	badCandidates := -1
	config := &LatticeConfig{
		Version:  "3.0",
		Instance: "",
		Seal: &SealConfig{
			RequiredLevel:    &badLevel,
			DefaultAuthority: "PRETENDER",
		},
		Recommend: &RecommendConfig{MaxCandidates: &badCandidates},
	}

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 3.0")
	assert.Contains(t, err.Error(), "instance name is required")
	assert.Contains(t, err.Error(), "seal.required_level must be >= 1")
	assert.Contains(t, err.Error(), "not a recognized authority: PRETENDER")
	assert.Contains(t, err.Error(), "recommend.max_candidates must be >= 1")
}

func TestDefault_IsValid(t *testing.T) {
	config := Default("my-lattice")
	require.NoError(t, config.Validate())
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "my-lattice", config.Instance)
}

func TestWrite_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lattice.yml")

	original := Default("round-trip")
	require.NoError(t, Write(configPath, original))

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, original.Instance, loaded.Instance)
	assert.Equal(t, *original.Seal.RequiredLevel, *loaded.Seal.RequiredLevel)
	assert.Equal(t, *original.Recommend.MaxCandidates, *loaded.Recommend.MaxCandidates)
}

func TestWrite_RefusesOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lattice.yml")

	require.NoError(t, Write(configPath, Default("first")))

	err := Write(configPath, Default("second"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config already exists")
}
