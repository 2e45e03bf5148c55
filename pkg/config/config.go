// Package config loads and validates stackzip configuration from a YAML file,
// STACKZIP_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/stackzip/pkg/archive"
	"github.com/Sumatoshi-tech/stackzip/pkg/sweep"
)

// Sentinel validation errors. LoadConfig wraps them in a sweep ConfigurationError.
var (
	ErrMissingServerName   = errors.New("server name is required")
	ErrInvalidRunHour      = errors.New("run hour must be between 0 and 23")
	ErrUnknownDestination  = errors.New("unknown destination mode")
	ErrMissingArchiveRoot  = errors.New("archive root is required in volume mode")
	ErrArchiveRootMissing  = errors.New("archive root does not exist or is not mounted")
	ErrMissingBucket       = errors.New("s3 destination requires a bucket")
	ErrManualNameRequired  = errors.New("manual directory requires a manual name")
	ErrManualDirMissing    = errors.New("manual directory does not exist")
	ErrNoSources           = errors.New("no source directories, manual directory or discovery configured")
	ErrInvalidForceSingle  = errors.New("force_single_after_days must not be negative")
	ErrInvalidNice         = errors.New("nice must be between -20 and 19")
	ErrInvalidInterval     = errors.New("schedule check interval must be positive")
	ErrUnknownLogFormat    = errors.New("unknown log format")
	ErrUnknownCodecSetting = errors.New("unknown archive codec")
)

// Config holds all stackzip configuration.
type Config struct {
	ServerName    string            `mapstructure:"server_name"`
	RunHour       int               `mapstructure:"run_hour"`
	FailurePolicy string            `mapstructure:"failure_policy"`
	Nice          int               `mapstructure:"nice"`
	Dispose       DisposeConfig     `mapstructure:"dispose"`
	Destination   DestinationConfig `mapstructure:"destination"`
	Archive       ArchiveConfig     `mapstructure:"archive"`
	Sources       SourcesConfig     `mapstructure:"sources"`
	Discovery     DiscoveryConfig   `mapstructure:"discovery"`
	Schedule      ScheduleConfig    `mapstructure:"schedule"`
	Logging       LoggingConfig     `mapstructure:"logging"`
	Catalog       CatalogConfig     `mapstructure:"catalog"`
	Metrics       MetricsConfig     `mapstructure:"metrics"`
	OTLP          OTLPConfig        `mapstructure:"otlp"`
}

// DisposeConfig selects what happens to archived source files.
type DisposeConfig struct {
	// Delete removes originals; otherwise they move to <source>/archive.
	Delete bool `mapstructure:"delete"`
}

// DestinationConfig selects where artifacts end up.
type DestinationConfig struct {
	Mode        string   `mapstructure:"mode"`
	ArchiveRoot string   `mapstructure:"archive_root"`
	StagingDir  string   `mapstructure:"staging_dir"`
	S3          S3Config `mapstructure:"s3"`
}

// S3Config holds the S3 destination settings.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ArchiveConfig holds artifact settings.
type ArchiveConfig struct {
	Codec                string `mapstructure:"codec"`
	ForceSingleAfterDays int    `mapstructure:"force_single_after_days"`
}

// SourcesConfig selects the source directories.
type SourcesConfig struct {
	Dirs       []string `mapstructure:"dirs"`
	ManualDir  string   `mapstructure:"manual_dir"`
	ManualName string   `mapstructure:"manual_name"`
	Discover   bool     `mapstructure:"discover"`
	StackPath  string   `mapstructure:"stack_path"`
}

// DiscoveryConfig tunes STACK process discovery.
type DiscoveryConfig struct {
	CollectorMatch string `mapstructure:"collector_match"`
}

// ScheduleConfig tunes the daily scheduler.
type ScheduleConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is a file path, or "stderr"/"stdout". Empty means <log name>.log.
	Output string `mapstructure:"output"`
	// Name is the log file base name.
	Name string `mapstructure:"name"`
}

// CatalogConfig locates the SQLite ledger. An empty path disables it.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig exposes /metrics, /healthz and /readyz when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// OTLPConfig configures OTLP export.
type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
	Headers  string `mapstructure:"headers"`
}

// FlagBinding maps a config key to a command-line flag. Flags override the
// file and the environment only when set explicitly.
type FlagBinding struct {
	Key  string
	Flag string
	// Value, when non-nil, is stored under Key if the boolean flag is set to
	// true, instead of the flag's own value.
	Value any
}

// LoadConfig loads configuration from file, environment variables and the
// bound flags. An empty configPath searches for stackzip.yaml.
func LoadConfig(configPath string, flags *pflag.FlagSet, bindings ...FlagBinding) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("stackzip")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/stackzip")
	}

	viperCfg.SetEnvPrefix("STACKZIP")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	for _, b := range bindings {
		if flags == nil {
			break
		}

		flag := flags.Lookup(b.Flag)
		if flag == nil {
			continue
		}

		if b.Value != nil {
			if flag.Changed && flag.Value.String() == "true" {
				viperCfg.Set(b.Key, b.Value)
			}

			continue
		}

		bindErr := viperCfg.BindPFlag(b.Key, flag)
		if bindErr != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.Flag, bindErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, &sweep.Error{Kind: sweep.KindConfiguration, Err: validateErr}
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server_name", "")
	viperCfg.SetDefault("run_hour", DefaultRunHour)
	viperCfg.SetDefault("failure_policy", DefaultFailurePolicy)
	viperCfg.SetDefault("nice", DefaultNice)

	viperCfg.SetDefault("dispose.delete", false)

	viperCfg.SetDefault("destination.mode", DefaultDestinationMode)
	viperCfg.SetDefault("destination.archive_root", DefaultArchiveRoot)
	viperCfg.SetDefault("destination.staging_dir", "")
	viperCfg.SetDefault("destination.s3.bucket", "")
	viperCfg.SetDefault("destination.s3.region", "")
	viperCfg.SetDefault("destination.s3.endpoint", "")
	viperCfg.SetDefault("destination.s3.prefix", "")
	viperCfg.SetDefault("destination.s3.access_key_id", "")
	viperCfg.SetDefault("destination.s3.secret_access_key", "")

	viperCfg.SetDefault("archive.codec", DefaultCodec)
	viperCfg.SetDefault("archive.force_single_after_days", 0)

	viperCfg.SetDefault("sources.dirs", []string{})
	viperCfg.SetDefault("sources.manual_dir", "")
	viperCfg.SetDefault("sources.manual_name", "")
	viperCfg.SetDefault("sources.discover", false)
	viperCfg.SetDefault("sources.stack_path", DefaultStackPath)

	viperCfg.SetDefault("discovery.collector_match", DefaultCollectorMatch)
	viperCfg.SetDefault("schedule.check_interval", DefaultCheckInterval.String())

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
	viperCfg.SetDefault("logging.output", "")
	viperCfg.SetDefault("logging.name", DefaultLogName)

	viperCfg.SetDefault("catalog.path", DefaultCatalogPath)
	viperCfg.SetDefault("metrics.addr", "")

	viperCfg.SetDefault("otlp.endpoint", "")
	viperCfg.SetDefault("otlp.insecure", false)
	viperCfg.SetDefault("otlp.headers", "")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.ServerName == "" {
		return ErrMissingServerName
	}

	if config.RunHour < 0 || config.RunHour > 23 {
		return fmt.Errorf("%w: %d", ErrInvalidRunHour, config.RunHour)
	}

	_, err := sweep.ParseFailurePolicy(config.FailurePolicy)
	if err != nil {
		return err
	}

	if config.Nice < -20 || config.Nice > 19 {
		return fmt.Errorf("%w: %d", ErrInvalidNice, config.Nice)
	}

	err = validateDestination(&config.Destination)
	if err != nil {
		return err
	}

	_, err = archive.CodecByName(config.Archive.Codec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownCodecSetting, err)
	}

	if config.Archive.ForceSingleAfterDays < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidForceSingle, config.Archive.ForceSingleAfterDays)
	}

	err = validateSources(&config.Sources)
	if err != nil {
		return err
	}

	if config.Schedule.CheckInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, config.Schedule.CheckInterval)
	}

	switch config.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogFormat, config.Logging.Format)
	}

	return nil
}

func validateDestination(dest *DestinationConfig) error {
	switch dest.Mode {
	case DestinationLocal:
		return nil
	case DestinationVolume:
		if dest.ArchiveRoot == "" {
			return ErrMissingArchiveRoot
		}

		info, err := os.Stat(dest.ArchiveRoot)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrArchiveRootMissing, dest.ArchiveRoot)
		}

		return nil
	case DestinationS3:
		if dest.S3.Bucket == "" {
			return ErrMissingBucket
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDestination, dest.Mode)
	}
}

func validateSources(src *SourcesConfig) error {
	if src.ManualDir != "" {
		if src.ManualName == "" {
			return ErrManualNameRequired
		}

		info, err := os.Stat(src.ManualDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrManualDirMissing, src.ManualDir)
		}

		return nil
	}

	if !src.Discover && len(src.Dirs) == 0 {
		return ErrNoSources
	}

	return nil
}

// LogOutput returns the configured log destination: Logging.Output when
// set, otherwise <Logging.Name>.log.
func (c *Config) LogOutput() string {
	if c.Logging.Output != "" {
		return c.Logging.Output
	}

	return c.Logging.Name + LogFileExt
}
