package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/boxel-survey/survey"
	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	"github.com/spf13/viper"
)

// Storage backends for the empty region shards.
const (
	StorageFile   = "file"
	StorageBadger = "badger"
	StorageMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Storage StorageConfig `mapstructure:"storage"`
	Records RecordsConfig `mapstructure:"records"`
	Route   RouteConfig   `mapstructure:"route"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SearchConfig holds the boxel search policy switches.
type SearchConfig struct {
	// LowMassCode is the smallest mass code the progress tree is built down to.
	LowMassCode string `mapstructure:"lowMassCode"`
	// MaxProgressDepth bounds how many levels below the top region are enumerated.
	MaxProgressDepth int `mapstructure:"maxProgressDepth"`
	// SkipAlreadyVisited treats systems visited before the search started as complete.
	SkipAlreadyVisited bool `mapstructure:"skipAlreadyVisited"`
	// TrustCatalog treats systems the catalog knew about before the search started as complete.
	TrustCatalog bool   `mapstructure:"trustCatalog"`
	AutoCopy     bool   `mapstructure:"autoCopy"`
	StateFile    string `mapstructure:"stateFile"`
}

// StorageConfig selects where empty region shards are kept.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	BadgerDir string `mapstructure:"badgerDir"`
}

// RecordsConfig stores the local visited system database details.
type RecordsConfig struct {
	DSN       string `mapstructure:"dsn"`
	Commander string `mapstructure:"commander"`
}

// RouteConfig points at the game's NavRoute.json.
type RouteConfig struct {
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // search.trustCatalog becomes BOXEL_SEARCH_TRUSTCATALOG

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &AppConfig, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.lowMassCode", "c")
	v.SetDefault("search.maxProgressDepth", 5)
	v.SetDefault("search.skipAlreadyVisited", false)
	v.SetDefault("search.trustCatalog", false)
	v.SetDefault("search.autoCopy", true)
	v.SetDefault("search.stateFile", internal.DefaultSearchStateFile)

	v.SetDefault("storage.backend", StorageFile)
	v.SetDefault("storage.dir", internal.DefaultEmptyRegionsDir)
	v.SetDefault("storage.badgerDir", internal.DefaultBadgerDir)

	v.SetDefault("records.dsn", internal.DefaultRecordsDSN)
	v.SetDefault("records.commander", "")

	v.SetDefault("route.file", "")
	v.SetDefault("logging.level", "info")
}

// Validate checks the values that cannot be expressed as viper defaults.
func (c *Config) Validate() error {
	if _, err := c.Search.MassCode(); err != nil {
		return fmt.Errorf("%w: search.lowMassCode: %w", ErrInvalidConfig, err)
	}
	if c.Search.MaxProgressDepth < 1 {
		return fmt.Errorf("%w: search.maxProgressDepth must be positive, got %d", ErrInvalidConfig, c.Search.MaxProgressDepth)
	}

	switch c.Storage.Backend {
	case StorageFile, StorageBadger, StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

// MassCode parses LowMassCode.
func (s SearchConfig) MassCode() (boxel.MassCode, error) {
	return boxel.ParseMassCode(s.LowMassCode)
}
