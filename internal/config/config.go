package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver     string
		DSN        string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		SQLitePath string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Telegram struct {
		Token       string
		Debug       bool
		PollTimeout int
	}

	Storage struct {
		AccountID       string
		AccessKeyID     string
		SecretAccessKey string
		Bucket          string
		PublicURL       string
		Endpoint        string
		Region          string
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matchbot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.SQLitePath = getEnvDefault("SQLITE_PATH", "matchbot.db")
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "matchbot")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC health endpoint
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Telegram
	cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.Debug = isTruthy(os.Getenv("TELEGRAM_DEBUG"))
	cfg.Telegram.PollTimeout = 60
	if v, err := strconv.Atoi(getEnvDefault("TELEGRAM_POLL_TIMEOUT", "60")); err == nil && v > 0 {
		cfg.Telegram.PollTimeout = v
	}

	// Photo storage (Cloudflare R2 or any S3-compatible endpoint)
	cfg.Storage.AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.Storage.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.Storage.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.Storage.Bucket = os.Getenv("R2_BUCKET_NAME")
	cfg.Storage.PublicURL = strings.TrimRight(os.Getenv("R2_PUBLIC_URL"), "/")
	cfg.Storage.Region = getEnvDefault("S3_REGION", "auto")
	cfg.Storage.Endpoint = os.Getenv("S3_ENDPOINT")
	if cfg.Storage.Endpoint == "" && cfg.Storage.AccountID != "" {
		cfg.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Storage.AccountID)
	}

	return cfg
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("R2_BUCKET_NAME is required"))
	}
	if c.Storage.PublicURL == "" {
		errs = append(errs, errors.New("R2_PUBLIC_URL is required"))
	}
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	return errors.Join(errs...)
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
