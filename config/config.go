package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Finflow   FinflowConfig   `yaml:"finflow"`
	Exporter  ExporterConfig  `yaml:"exporter"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Report    ReportConfig    `yaml:"report"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type FinflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ExporterConfig struct {
	MetaURL        string               `yaml:"meta_url"`
	ExportURL      string               `yaml:"export_url"`
	UserAgent      string               `yaml:"user_agent"`
	Timeout        time.Duration        `yaml:"timeout"`
	MaxRetries     int                  `yaml:"max_retries"`
	RetryBaseDelay time.Duration        `yaml:"retry_base_delay"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
	ResourceHistory int           `yaml:"resource_history"`
}

const (
	defaultMetaURL   = "https://www.finam.ru/cache/icharts/icharts.js"
	defaultExportURL = "https://export.finam.ru/table.csv"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultConfigPath = "config/finflow.yaml"
)

var envConfigPaths = map[string]string{
	environmentDevelopment: "config/finflow.dev.yaml",
	environmentStaging:     "config/finflow.staging.yaml",
	environmentProduction:  "config/finflow.yaml",
}

// DefaultConfig returns a configuration that works without any config file.
func DefaultConfig() *Config {
	return &Config{
		Finflow: FinflowConfig{
			Name:    "finflow",
			Version: "0.3.0",
		},
		Exporter: ExporterConfig{
			MetaURL:        defaultMetaURL,
			ExportURL:      defaultExportURL,
			UserAgent:      defaultUserAgent,
			Timeout:        120 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    10,
				MaxConnsPerHost: 4,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Report: ReportConfig{
			Enabled: true,
		},
		Dashboard: DashboardConfig{
			Enabled:         false,
			Address:         "127.0.0.1:8080",
			RefreshInterval: 5 * time.Second,
		},
	}
}

// LoadConfig reads the YAML configuration at path on top of the defaults.
// An empty path yields the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if resolved := resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths); resolved != path {
			if _, err := os.Stat(resolved); err == nil {
				path = resolved
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Finflow.Name == "" {
		return fmt.Errorf("finflow.name is required")
	}

	if cfg.Finflow.Version == "" {
		return fmt.Errorf("finflow.version is required")
	}

	if cfg.Exporter.MetaURL == "" {
		return fmt.Errorf("exporter.meta_url is required")
	}
	if cfg.Exporter.ExportURL == "" {
		return fmt.Errorf("exporter.export_url is required")
	}
	if cfg.Exporter.Timeout <= 0 {
		return fmt.Errorf("exporter.timeout must be greater than 0")
	}
	if cfg.Exporter.MaxRetries < 1 {
		return fmt.Errorf("exporter.max_retries must be at least 1")
	}
	if cfg.Exporter.RetryBaseDelay <= 0 {
		return fmt.Errorf("exporter.retry_base_delay must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		// Development environments may rely on the default AWS credential
		// chain; production-like environments must configure keys explicitly.
		if IsProductionLike(AppEnvironment()) {
			if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
				return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
			}
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Dashboard.Enabled {
		if cfg.Dashboard.RefreshInterval < 0 {
			return fmt.Errorf("dashboard.refresh_interval must not be negative")
		}
		if cfg.Dashboard.LogHistory < 0 || cfg.Dashboard.ResourceHistory < 0 {
			return fmt.Errorf("dashboard history sizes must not be negative")
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
