package config

// Package config provides a reusable loader for a fangorn worker's
// deployment configuration files and environment variables. It is
// versioned so that applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/driemworks/fangorn-worker/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a fangorn worker
// process. Load fills it from YAML files (default.yaml plus an optional
// per-environment file) under cmd/fangorn/config or config.
type Config struct {
	Worker struct {
		Index         uint32 `mapstructure:"index" json:"index"`
		Threshold     uint32 `mapstructure:"threshold" json:"threshold"`
		CommitteeSize uint32 `mapstructure:"committee_size" json:"committee_size"`
		IsBootstrap   bool   `mapstructure:"is_bootstrap" json:"is_bootstrap"`
		BindPort      int    `mapstructure:"bind_port" json:"bind_port"`
		RPCPort       int    `mapstructure:"rpc_port" json:"rpc_port"`
		TicketPath    string `mapstructure:"ticket_path" json:"ticket_path"`
		ConfigPath    string `mapstructure:"config_path" json:"config_path"`
	} `mapstructure:"worker" json:"worker"`

	Contracts struct {
		PredicateRegistryAddr string `mapstructure:"predicate_registry_addr" json:"predicate_registry_addr"`
		RequestPoolAddr       string `mapstructure:"request_pool_addr" json:"request_pool_addr"`
		LedgerRPCEndpoint     string `mapstructure:"ledger_rpc_endpoint" json:"ledger_rpc_endpoint"`
	} `mapstructure:"contracts" json:"contracts"`

	Storage struct {
		BlobDir          string `mapstructure:"blob_dir" json:"blob_dir"`
		BlobCacheEntries int    `mapstructure:"blob_cache_entries" json:"blob_cache_entries"`
	} `mapstructure:"storage" json:"storage"`

	RPCResolver struct {
		// Addresses maps a decimal committee slot to "host:port".
		Addresses map[string]string `mapstructure:"addresses" json:"addresses"`
	} `mapstructure:"rpc_resolver" json:"rpc_resolver"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/fangorn/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up matching environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FANGORN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("FANGORN_ENV", ""))
}
