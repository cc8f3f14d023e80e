// Package config provides a reusable loader for ledgerkernel configuration
// files and environment variables. It is versioned so that applications
// can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ledgerkernel/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a ledgerkernel instance. It mirrors the structure of the YAML files Load reads from a config/ directory, when one is present.
type Config struct {
	Ledger struct {
		Name             string `mapstructure:"name" json:"name"`
		StrictStaleState bool   `mapstructure:"strict_stale_state" json:"strict_stale_state"`
		MaxCascadePasses int    `mapstructure:"max_cascade_passes" json:"max_cascade_passes"`
		DecimalPrecision int    `mapstructure:"decimal_precision" json:"decimal_precision"`
		HashBits         int    `mapstructure:"hash_bits" json:"hash_bits"`
		TestMode         bool   `mapstructure:"test_mode" json:"test_mode"`
	} `mapstructure:"ledger" json:"ledger"`

	Lifecycle struct {
		MaxPasses int `mapstructure:"max_passes" json:"max_passes"`
	} `mapstructure:"lifecycle" json:"lifecycle"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the LEDGER_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("LEDGER_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("ledger.name", "ledger")
	viper.SetDefault("ledger.strict_stale_state", false)
	viper.SetDefault("ledger.max_cascade_passes", 10)
	viper.SetDefault("ledger.decimal_precision", 50)
	viper.SetDefault("ledger.hash_bits", 128)
	viper.SetDefault("ledger.test_mode", false)
	viper.SetDefault("lifecycle.max_passes", 10)
	viper.SetDefault("logging.level", "info")
}
