// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`

	// Visitor session settings. Sessions expire after an absolute TTL that is
	// rewritten in full on every session write, never extended incrementally.
	SessionTTLSeconds int `mapstructure:"sessionttlseconds"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Relational store settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Session store (redis) settings
	RedisAddr     string `mapstructure:"redisaddr"`
	RedisPassword string `mapstructure:"redispassword"`
	RedisDB       int    `mapstructure:"redisdb"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Default retention window in days, seeded into settings on first run.
	// 0 keeps data forever.
	RetentionDays int `mapstructure:"retentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "cloudcounter")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("sessionttlseconds", 28800) // 8 hours
		v.SetDefault("storagepath", "storage")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("redisaddr", "localhost:6379")
		v.SetDefault("redispassword", "")
		v.SetDefault("redisdb", 0)
		v.SetDefault("jobintervalseconds", 60)
		v.SetDefault("retentiondays", 0)

		v.BindEnv("appname", "CLOUDCOUNTER_APP_NAME")
		v.BindEnv("appport", "CLOUDCOUNTER_APP_PORT")
		v.BindEnv("environment", "CLOUDCOUNTER_ENV")
		v.BindEnv("loglevel", "CLOUDCOUNTER_LOG_LEVEL")
		v.BindEnv("privatekey", "CLOUDCOUNTER_PRIVATE_KEY")
		v.BindEnv("sessionttlseconds", "CLOUDCOUNTER_SESSION_TTL_SECONDS")
		v.BindEnv("storagepath", "CLOUDCOUNTER_STORAGE_PATH")
		v.BindEnv("publicdir", "CLOUDCOUNTER_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "CLOUDCOUNTER_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "CLOUDCOUNTER_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "CLOUDCOUNTER_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "CLOUDCOUNTER_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "CLOUDCOUNTER_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "CLOUDCOUNTER_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "CLOUDCOUNTER_DB_MAX_IDLE_CONNS")
		v.BindEnv("redisaddr", "CLOUDCOUNTER_REDIS_ADDR")
		v.BindEnv("redispassword", "CLOUDCOUNTER_REDIS_PASSWORD")
		v.BindEnv("redisdb", "CLOUDCOUNTER_REDIS_DB")
		v.BindEnv("jobintervalseconds", "CLOUDCOUNTER_JOB_INTERVAL_SECONDS")
		v.BindEnv("retentiondays", "CLOUDCOUNTER_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		// The private key seeds the one-way session hash. A default key in
		// production would make visitor hashes guessable.
		defaultKey := "88888888888888888888888888888888"
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique CLOUDCOUNTER_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("invalid session ttl: %d", c.SessionTTLSeconds)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetSessionTTL returns the visitor session time-to-live in seconds.
func (c *Config) GetSessionTTL() int {
	return c.SessionTTLSeconds
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value. Tests get a single connection
// for stability; other environments get a small pool so dashboard queries can
// run in parallel.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
