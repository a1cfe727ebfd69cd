package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	S3      S3Config
	Decoder DecoderConfig
	Queue   QueueConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object storage settings for uploaded PDFs and page images.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// DecoderConfig holds settings for the external barcode decoder sidecar.
type DecoderConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// QueueConfig holds scan queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	BundleBatch      int `mapstructure:"bundle_batch"`
	PageConcurrency  int `mapstructure:"page_concurrency"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the PAPERSCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAPERSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "paperscan")
	v.SetDefault("db.password", "paperscan_secret")
	v.SetDefault("db.name", "paperscan_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "paperscan-pages")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 200)
	v.SetDefault("s3.presign_expiry", 3600)

	// Decoder defaults
	v.SetDefault("decoder.base_url", "http://localhost:9090")
	v.SetDefault("decoder.timeout_secs", 30)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.bundle_batch", 2)
	v.SetDefault("queue.page_concurrency", 8)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "PAPERSCAN_SERVER_PORT",
		"server.read_timeout":      "PAPERSCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "PAPERSCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":       "PAPERSCAN_SERVER_ENVIRONMENT",
		"db.host":                  "PAPERSCAN_DB_HOST",
		"db.port":                  "PAPERSCAN_DB_PORT",
		"db.user":                  "PAPERSCAN_DB_USER",
		"db.password":              "PAPERSCAN_DB_PASSWORD",
		"db.name":                  "PAPERSCAN_DB_NAME",
		"db.sslmode":               "PAPERSCAN_DB_SSLMODE",
		"db.max_open":              "PAPERSCAN_DB_MAX_OPEN",
		"db.max_idle":              "PAPERSCAN_DB_MAX_IDLE",
		"s3.region":                "PAPERSCAN_S3_REGION",
		"s3.bucket":                "PAPERSCAN_S3_BUCKET",
		"s3.endpoint":              "PAPERSCAN_S3_ENDPOINT",
		"s3.access_key":            "PAPERSCAN_S3_ACCESS_KEY",
		"s3.secret_key":            "PAPERSCAN_S3_SECRET_KEY",
		"s3.max_file_size_mb":      "PAPERSCAN_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":        "PAPERSCAN_S3_PRESIGN_EXPIRY",
		"decoder.base_url":         "PAPERSCAN_DECODER_BASE_URL",
		"decoder.timeout_secs":     "PAPERSCAN_DECODER_TIMEOUT_SECS",
		"queue.poll_interval_secs": "PAPERSCAN_QUEUE_POLL_INTERVAL_SECS",
		"queue.bundle_batch":       "PAPERSCAN_QUEUE_BUNDLE_BATCH",
		"queue.page_concurrency":   "PAPERSCAN_QUEUE_PAGE_CONCURRENCY",
		"log.level":                "PAPERSCAN_LOG_LEVEL",
		"log.format":               "PAPERSCAN_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PAPERSCAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PAPERSCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Decoder = DecoderConfig{
		BaseURL:     v.GetString("decoder.base_url"),
		TimeoutSecs: v.GetInt("decoder.timeout_secs"),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		BundleBatch:      v.GetInt("queue.bundle_batch"),
		PageConcurrency:  v.GetInt("queue.page_concurrency"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, nil
}
