package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
// This is the single source of truth for all default analysis values.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig represents the root configuration for the radial analysis
// pipeline. All fields are pointers so partial JSON configs are safe: omitted
// fields fall back to the compiled-in defaults in the Get* accessors.
type AnalysisConfig struct {
	// Persistence sign convention: outward-positive signed persistence when
	// true, absolute radial alignment when false.
	SignedPersistence *bool `json:"signed_persistence,omitempty"`

	// Epsilon is the tolerance below which a radial reference vector is
	// treated as zero-length (degenerate).
	Epsilon *float64 `json:"epsilon,omitempty"`

	// AnalysisWorkers bounds the number of files analyzed concurrently.
	AnalysisWorkers *int `json:"analysis_workers,omitempty"`

	// FillMissingValue substitutes for non-numeric CSV cells.
	FillMissingValue *float64 `json:"fill_missing_value,omitempty"`
}

// pointer-literal helpers for building configs in code
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
// Use LoadAnalysisConfig to load actual values from the defaults file.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under the max file size.
// Fields omitted from the JSON file retain their default values, so partial
// configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical analysis defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded; intended
// for test setup and binaries that have already validated config availability.
func MustLoadDefaultConfig() *AnalysisConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.Epsilon != nil {
		if *c.Epsilon < 0 {
			return fmt.Errorf("epsilon must be non-negative, got %g", *c.Epsilon)
		}
	}

	if c.AnalysisWorkers != nil {
		if *c.AnalysisWorkers < 1 {
			return fmt.Errorf("analysis_workers must be at least 1, got %d", *c.AnalysisWorkers)
		}
	}

	return nil
}

// GetSignedPersistence returns the persistence sign convention.
func (c *AnalysisConfig) GetSignedPersistence() bool {
	if c.SignedPersistence == nil {
		return true // outward-positive default
	}
	return *c.SignedPersistence
}

// GetEpsilon returns the degenerate-geometry tolerance.
func (c *AnalysisConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return 0 // exact coincidence only
	}
	return *c.Epsilon
}

// GetAnalysisWorkers returns the per-file concurrency bound.
func (c *AnalysisConfig) GetAnalysisWorkers() int {
	if c.AnalysisWorkers == nil {
		return 4
	}
	return *c.AnalysisWorkers
}

// GetFillMissingValue returns the substitute for non-numeric CSV cells.
func (c *AnalysisConfig) GetFillMissingValue() float64 {
	if c.FillMissingValue == nil {
		return 0
	}
	return *c.FillMissingValue
}
