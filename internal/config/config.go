// Package config loads the settings shared by the store daemon and the ltaccess CLI.
//
// Values come, in increasing priority, from the defaults below, an optional YAML file and
// LITETABLE_ACCESS_* environment variables (store.port -> LITETABLE_ACCESS_STORE_PORT).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "LITETABLE_ACCESS"
	configFileName = "litetable-access"
)

type Config struct {
	Debug   bool          `mapstructure:"debug"`
	Access  AccessConfig  `mapstructure:"access"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Store   StoreConfig   `mapstructure:"store"`
	CDC     CDCConfig     `mapstructure:"cdc"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AccessConfig struct {
	ScanCaching    int    `mapstructure:"scan_caching"`
	DeleteBatch    int    `mapstructure:"delete_batch"`
	CountFamily    string `mapstructure:"count_family"`
	CountQualifier string `mapstructure:"count_qualifier"`
	// QueriesFile is the YAML file of named query templates. Optional.
	QueriesFile string `mapstructure:"queries_file"`
}

type FilterConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

type StoreConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	// Families restricts the column families the daemon accepts. Empty accepts any.
	Families []string `mapstructure:"families"`
	DataDir  string   `mapstructure:"data_dir"`
	// SnapshotInterval is how often the daemon snapshots the table. Zero snapshots on shutdown
	// only.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	SnapshotLimit    int           `mapstructure:"snapshot_limit"`
}

// Target is the dial target of the store daemon.
func (s StoreConfig) Target() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

type CDCConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) error {
	dataDir, err := litetable.GetLitetableDir()
	if err != nil {
		return err
	}

	v.SetDefault("debug", false)
	v.SetDefault("access.scan_caching", 100)
	v.SetDefault("access.delete_batch", 1000)
	v.SetDefault("access.count_family", "main")
	v.SetDefault("access.count_qualifier", "id")
	v.SetDefault("access.queries_file", "")
	v.SetDefault("filter.cache_size", 256)
	v.SetDefault("store.address", "127.0.0.1")
	v.SetDefault("store.port", 9443)
	v.SetDefault("store.families", []string{})
	v.SetDefault("store.data_dir", dataDir)
	v.SetDefault("store.snapshot_interval", "5m")
	v.SetDefault("store.snapshot_limit", 10)
	v.SetDefault("cdc.address", "127.0.0.1")
	v.SetDefault("cdc.port", 32496)
	v.SetDefault("metrics.address", "127.0.0.1")
	v.SetDefault("metrics.port", 9090)
	return nil
}

// Load reads the configuration. An empty path looks for litetable-access.yaml in the
// LiteTable Access directory and carries on with defaults when there is none; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("store.data_dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Access.ScanCaching < 1 {
		errGrp = append(errGrp, fmt.Errorf("access.scan_caching must be positive: %d",
			c.Access.ScanCaching))
	}
	if c.Access.DeleteBatch < 1 {
		errGrp = append(errGrp, fmt.Errorf("access.delete_batch must be positive: %d",
			c.Access.DeleteBatch))
	}
	if c.Access.CountFamily == "" || c.Access.CountQualifier == "" {
		errGrp = append(errGrp, errors.New("access.count_family and access.count_qualifier are required"))
	}
	if c.Filter.CacheSize < 0 {
		errGrp = append(errGrp, fmt.Errorf("filter.cache_size cannot be negative: %d",
			c.Filter.CacheSize))
	}
	if c.Store.Address == "" {
		errGrp = append(errGrp, errors.New("store.address is required"))
	}
	if !validPort(c.Store.Port) {
		errGrp = append(errGrp, fmt.Errorf("store.port is out of range: %d", c.Store.Port))
	}
	if c.Store.DataDir == "" {
		errGrp = append(errGrp, errors.New("store.data_dir is required"))
	}
	if c.Store.SnapshotInterval < 0 {
		errGrp = append(errGrp, fmt.Errorf("store.snapshot_interval cannot be negative: %s",
			c.Store.SnapshotInterval))
	}
	if c.Store.SnapshotLimit < 1 || c.Store.SnapshotLimit > 50 {
		errGrp = append(errGrp, fmt.Errorf("store.snapshot_limit must be between 1 and 50: %d",
			c.Store.SnapshotLimit))
	}
	if !validPort(c.CDC.Port) {
		errGrp = append(errGrp, fmt.Errorf("cdc.port is out of range: %d", c.CDC.Port))
	}
	if !validPort(c.Metrics.Port) {
		errGrp = append(errGrp, fmt.Errorf("metrics.port is out of range: %d", c.Metrics.Port))
	}
	return errors.Join(errGrp...)
}

func validPort(p int) bool {
	return p >= 0 && p <= 65535
}

// CountColumn is the cell counts aggregate on.
func (c *Config) CountColumn() litetable.Column {
	return litetable.Column{Family: c.Access.CountFamily, Qualifier: c.Access.CountQualifier}
}

