/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

// Package config loads the store's table and index configuration from a YAML
// file with environment-variable overrides. Credentials are never read from
// the file; they come from the standard AWS environment/credential chain.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after file loading.
const (
	EnvTableName = "IDPSTORE_TABLE_NAME"
	EnvRegion    = "IDPSTORE_AWS_REGION"
	EnvEndpoint  = "IDPSTORE_ENDPOINT"
)

// IndexConfig maps a logical index name to its physical attribute names.
type IndexConfig struct {
	IndexName        string `yaml:"indexName"`
	PartitionKeyName string `yaml:"partitionKeyName"`
	SortKeyName      string `yaml:"sortKeyName"`
}

// Config carries everything the gateway needs to reach the table.
type Config struct {
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `yaml:"endpoint"`
	// DefaultTimeout is applied to operations whose context has no deadline.
	DefaultTimeout time.Duration `yaml:"defaultTimeout"`

	Indexes map[string]IndexConfig `yaml:"indexes"`
}

// Default returns the configuration for the standard two-index layout.
func Default() Config {
	return Config{
		TableName:      "idp-data",
		Region:         "us-east-1",
		DefaultTimeout: 10 * time.Second,
		Indexes: map[string]IndexConfig{
			"GSI1": {IndexName: "GSI1", PartitionKeyName: "GSI1PK", SortKeyName: "GSI1SK"},
			"GSI2": {IndexName: "GSI2", PartitionKeyName: "GSI2PK", SortKeyName: "GSI2SK"},
		},
	}
}

// Load reads a YAML configuration file over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTableName); v != "" {
		c.TableName = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}

// Validate checks the configuration is complete enough to open a store.
func (c Config) Validate() error {
	if c.TableName == "" {
		return fmt.Errorf("config: tableName is required")
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("config: defaultTimeout must be positive")
	}
	for name, idx := range c.Indexes {
		if idx.IndexName == "" || idx.PartitionKeyName == "" || idx.SortKeyName == "" {
			return fmt.Errorf("config: index %q is missing attribute names", name)
		}
	}
	return nil
}

// Index returns the configuration for a logical index name.
func (c Config) Index(name string) (IndexConfig, bool) {
	idx, ok := c.Indexes[name]
	return idx, ok
}
