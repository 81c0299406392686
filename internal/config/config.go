// Package config reads and writes the saldo.yaml project configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level saldo.yaml configuration.
type Config struct {
	Company    CompanyConfig    `yaml:"company"`
	Numbering  NumberingConfig  `yaml:"numbering"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Database   DatabaseConfig   `yaml:"database"`
	Bank       BankConfig       `yaml:"bank,omitempty"`
}

// CompanyConfig identifies the company every operation is scoped to.
type CompanyConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// NumberingConfig controls transaction numbers (PREFIX-YYYYMM-NNNN).
type NumberingConfig struct {
	TransactionPrefix string `yaml:"transaction_prefix"`
}

// ThresholdsConfig controls document extraction confidence cut-offs.
type ThresholdsConfig struct {
	DocumentWarn  float64 `yaml:"document_warn"`
	DocumentBlock float64 `yaml:"document_block"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BankConfig locates bank statement feeds.
type BankConfig struct {
	FeedDir     string `yaml:"feed_dir"`
	TemplateDir string `yaml:"template_dir,omitempty"`
}

// Load reads a saldo.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyID, companyName string) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:   companyID,
			Name: companyName,
		},
		Numbering: NumberingConfig{
			TransactionPrefix: "ID",
		},
		Thresholds: ThresholdsConfig{
			DocumentWarn:  0.70,
			DocumentBlock: 0.40,
		},
		Database: DatabaseConfig{
			Path: "saldo.db",
		},
		Bank: BankConfig{
			FeedDir:     "bank",
			TemplateDir: "templates",
		},
	}
}
