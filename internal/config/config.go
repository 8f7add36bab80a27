package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Log      LogConfig
	Pipeline PipelineConfig
	Tally    TallyConfig
	CORS     CORSConfig
	Queue    QueueConfig
	Notify   NotifyConfig
}

// NotifyConfig holds the notification sink's settings. Provider "noop" logs
// locally; "ses" emails the finance team.
type NotifyConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	ToAddresses []string `mapstructure:"to_addresses"`
}

// PipelineConfig holds worker-pool sizing and per-stage timeout settings for
// the batch pipeline.
type PipelineConfig struct {
	RowWorkerPoolSize  int           `mapstructure:"row_worker_pool_size"`
	StageTimeout       time.Duration `mapstructure:"stage_timeout"`
	S3RetryDeadline    time.Duration `mapstructure:"s3_retry_deadline"`
	DefaultOutputDir   string        `mapstructure:"default_output_dir"`
}

// TallyConfig holds the X2Beta rendering settings.
type TallyConfig struct {
	TemplateDir string `mapstructure:"template_dir"`
	StartRow    int    `mapstructure:"start_row"`
}

// QueueConfig holds approval-queue worker settings (poll interval + bounded
// concurrency).
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings for the optional approval-review HTTP surface.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds the optional approval-review HTTP server's settings.
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

// JWTConfig holds JWT signing and expiry settings for the approval-review surface.
type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer            string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings, including the bounded retry count the
// blob-store client honors.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
	MaxRetries    int    `mapstructure:"max_retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the GSTPIPE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GSTPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", ":8090")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "gstpipeline")
	v.SetDefault("db.password", "gstpipeline_secret")
	v.SetDefault("db.name", "gstpipeline_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.issuer", "gstpipeline")

	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "gstpipeline-artifacts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 200)
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("s3.max_retries", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 5)

	v.SetDefault("pipeline.row_worker_pool_size", 8)
	v.SetDefault("pipeline.stage_timeout", "10m")
	v.SetDefault("pipeline.s3_retry_deadline", "30s")
	v.SetDefault("pipeline.default_output_dir", "./output")

	v.SetDefault("tally.template_dir", "./templates/x2beta")
	v.SetDefault("tally.start_row", 5)

	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.region", "ap-south-1")
	v.SetDefault("notify.from_address", "pipeline@example.com")
	v.SetDefault("notify.from_name", "GST Pipeline")
	v.SetDefault("notify.to_addresses", "")

	envBindings := map[string]string{
		"server.port":                 "GSTPIPE_SERVER_PORT",
		"server.read_timeout":         "GSTPIPE_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "GSTPIPE_SERVER_WRITE_TIMEOUT",
		"server.environment":          "GSTPIPE_SERVER_ENVIRONMENT",
		"db.host":                     "GSTPIPE_DB_HOST",
		"db.port":                     "GSTPIPE_DB_PORT",
		"db.user":                     "GSTPIPE_DB_USER",
		"db.password":                 "GSTPIPE_DB_PASSWORD",
		"db.name":                     "GSTPIPE_DB_NAME",
		"db.sslmode":                  "GSTPIPE_DB_SSLMODE",
		"db.max_open":                 "GSTPIPE_DB_MAX_OPEN",
		"db.max_idle":                 "GSTPIPE_DB_MAX_IDLE",
		"jwt.secret":                  "GSTPIPE_JWT_SECRET",
		"jwt.access_expiry":           "GSTPIPE_JWT_ACCESS_EXPIRY",
		"jwt.issuer":                  "GSTPIPE_JWT_ISSUER",
		"s3.region":                   "GSTPIPE_S3_REGION",
		"s3.bucket":                   "GSTPIPE_S3_BUCKET",
		"s3.endpoint":                 "GSTPIPE_S3_ENDPOINT",
		"s3.access_key":               "GSTPIPE_S3_ACCESS_KEY",
		"s3.secret_key":               "GSTPIPE_S3_SECRET_KEY",
		"s3.max_file_size_mb":         "GSTPIPE_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":           "GSTPIPE_S3_PRESIGN_EXPIRY",
		"s3.max_retries":              "GSTPIPE_S3_MAX_RETRIES",
		"log.level":                   "GSTPIPE_LOG_LEVEL",
		"log.format":                  "GSTPIPE_LOG_FORMAT",
		"cors.allowed_origins":        "GSTPIPE_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":    "GSTPIPE_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":           "GSTPIPE_QUEUE_MAX_RETRIES",
		"queue.concurrency":           "GSTPIPE_QUEUE_CONCURRENCY",
		"pipeline.row_worker_pool_size": "GSTPIPE_PIPELINE_ROW_WORKER_POOL_SIZE",
		"pipeline.stage_timeout":        "GSTPIPE_PIPELINE_STAGE_TIMEOUT",
		"pipeline.s3_retry_deadline":     "GSTPIPE_PIPELINE_S3_RETRY_DEADLINE",
		"pipeline.default_output_dir":    "GSTPIPE_PIPELINE_DEFAULT_OUTPUT_DIR",
		"tally.template_dir":             "GSTPIPE_TALLY_TEMPLATE_DIR",
		"tally.start_row":                "GSTPIPE_TALLY_START_ROW",
		"notify.provider":                "GSTPIPE_NOTIFY_PROVIDER",
		"notify.region":                  "GSTPIPE_NOTIFY_REGION",
		"notify.from_address":            "GSTPIPE_NOTIFY_FROM_ADDRESS",
		"notify.from_name":               "GSTPIPE_NOTIFY_FROM_NAME",
		"notify.to_addresses":            "GSTPIPE_NOTIFY_TO_ADDRESSES",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
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
	cfg.JWT = JWTConfig{
		Secret:            v.GetString("jwt.secret"),
		AccessTokenExpiry: v.GetDuration("jwt.access_expiry"),
		Issuer:            v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
		MaxRetries:    v.GetInt("s3.max_retries"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	cfg.Pipeline = PipelineConfig{
		RowWorkerPoolSize: v.GetInt("pipeline.row_worker_pool_size"),
		StageTimeout:      v.GetDuration("pipeline.stage_timeout"),
		S3RetryDeadline:   v.GetDuration("pipeline.s3_retry_deadline"),
		DefaultOutputDir:  v.GetString("pipeline.default_output_dir"),
	}

	cfg.Tally = TallyConfig{
		TemplateDir: v.GetString("tally.template_dir"),
		StartRow:    v.GetInt("tally.start_row"),
	}

	var notifyTo []string
	for _, addr := range strings.Split(v.GetString("notify.to_addresses"), ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			notifyTo = append(notifyTo, addr)
		}
	}
	cfg.Notify = NotifyConfig{
		Provider:    v.GetString("notify.provider"),
		Region:      v.GetString("notify.region"),
		FromAddress: v.GetString("notify.from_address"),
		FromName:    v.GetString("notify.from_name"),
		ToAddresses: notifyTo,
	}

	return cfg, nil
}
