// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root so
// the loader behaves the same when invoked from package test directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bloodlink"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "hospitals"
	}

	if cfg.Notifications.DefaultRadiusKM == 0 {
		cfg.Notifications.DefaultRadiusKM = 10
	}
	if cfg.Notifications.MaxHospitals == 0 {
		cfg.Notifications.MaxHospitals = 5
	}
	if cfg.Notifications.SMSHospitalLimit == 0 {
		cfg.Notifications.SMSHospitalLimit = 3
	}
	if cfg.Notifications.DefaultCountryCode == "" {
		cfg.Notifications.DefaultCountryCode = "+91"
	}
	if cfg.Notifications.RateLimit.MaxPerWindow == 0 {
		cfg.Notifications.RateLimit.MaxPerWindow = 5
	}
	if cfg.Notifications.RateLimit.WindowSeconds == 0 {
		cfg.Notifications.RateLimit.WindowSeconds = 3600
	}
	if cfg.Notifications.Retry.MaxRetries == 0 {
		cfg.Notifications.Retry.MaxRetries = 3
	}
	if cfg.Notifications.Retry.BaseDelaySeconds == 0 {
		cfg.Notifications.Retry.BaseDelaySeconds = 60
	}
	if cfg.Notifications.Queue.Workers == 0 {
		cfg.Notifications.Queue.Workers = 4
	}
	if cfg.Notifications.Queue.ReadyKey == "" {
		cfg.Notifications.Queue.ReadyKey = "notification:jobs:ready"
	}
	if cfg.Notifications.Queue.DelayedKey == "" {
		cfg.Notifications.Queue.DelayedKey = "notification:jobs:delayed"
	}
	if cfg.Notifications.Queue.PollIntervalMS == 0 {
		cfg.Notifications.Queue.PollIntervalMS = 1000
	}
	if cfg.Notifications.Queue.ShutdownTimeoutS == 0 {
		cfg.Notifications.Queue.ShutdownTimeoutS = 15
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when elasticsearch is enabled")
	}
	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.FromEmail == "" {
		return fmt.Errorf("integrations.aws.ses.from_email is required when SES is enabled")
	}
	if cfg.Notifications.RateLimit.MaxPerWindow < 1 {
		return fmt.Errorf("notifications.rate_limit.max_per_window must be positive")
	}
	return nil
}
