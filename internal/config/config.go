package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS,required"`
	Environment   string `env:"ENVIRONMENT,required"`
	Database      DatabaseConfig
	Migration     MigrationConfig
	Log           LogConfig
	Engine        EngineConfig
	Report        ReportConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST,required"`
	Port     int    `env:"DB_PORT,required"`
	User     string `env:"DB_USER,required"`
	Password string `env:"DB_PASSWORD,required"`
	Name     string `env:"DB_NAME,required"`
	Params   string `env:"DB_PARAMS,required"`
	MaxConns int    `env:"DB_MAX_CONNS"`
}

type MigrationConfig struct {
	Dir string `env:"MIGRATION_DIR"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"`
}

// EngineConfig locates the rule and reference tables and tunes the matcher.
type EngineConfig struct {
	RulesFile     string `env:"RULES_FILE"`
	ReferenceFile string `env:"REFERENCE_FILE"`
	NormalizeRefs bool   `env:"MATCH_NORMALIZE_REFS"`
	Workers       int    `env:"RECONCILE_WORKERS"`
}

// Report storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type ReportConfig struct {
	Storage string `env:"REPORT_STORAGE"`
	Dir     string `env:"REPORT_DIR"`
	S3      S3Config
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_PARAMS", "parseTime=true&charset=utf8mb4")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("MIGRATION_DIR", "migrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("MATCH_NORMALIZE_REFS", false)
	v.SetDefault("RECONCILE_WORKERS", 4)
	v.SetDefault("REPORT_STORAGE", StorageLocal)
	v.SetDefault("REPORT_DIR", "reports")
	v.SetDefault("S3_REGION", "eu-west-3")
}

// LoadConfig reads path (a .env file) when it exists, then the environment.
// Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		Environment:   v.GetString("ENVIRONMENT"),
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			Params:   v.GetString("DB_PARAMS"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		Migration: MigrationConfig{
			Dir: v.GetString("MIGRATION_DIR"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Engine: EngineConfig{
			RulesFile:     v.GetString("RULES_FILE"),
			ReferenceFile: v.GetString("REFERENCE_FILE"),
			NormalizeRefs: v.GetBool("MATCH_NORMALIZE_REFS"),
			Workers:       v.GetInt("RECONCILE_WORKERS"),
		},
		Report: ReportConfig{
			Storage: strings.ToLower(v.GetString("REPORT_STORAGE")),
			Dir:     v.GetString("REPORT_DIR"),
			S3: S3Config{
				Bucket:    v.GetString("S3_BUCKET"),
				Region:    v.GetString("S3_REGION"),
				Endpoint:  v.GetString("S3_ENDPOINT"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
			},
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Report.Storage {
	case StorageLocal:
	case StorageS3:
		if c.Report.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when REPORT_STORAGE is %s", StorageS3)
		}
	default:
		return fmt.Errorf("unknown REPORT_STORAGE %q", c.Report.Storage)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("RECONCILE_WORKERS must be positive, got %d", c.Engine.Workers)
	}
	return nil
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// GetMigrationDBURL returns the database URL for migrations
func (c *Config) GetMigrationDBURL() string {
	return "mysql://" + c.GetDSN()
}
