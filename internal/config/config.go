package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// File store backends
const (
	BackendDrive = "drive"
	BackendMinIO = "minio"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Worker   WorkerConfig   `yaml:"worker"`
	Notify   NotifyConfig   `yaml:"notify"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Drive    DriveConfig    `yaml:"drive"`
	MinIO    MinIOConfig    `yaml:"minio"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds the optional queue bound to the exchange
type QueueConfig struct {
	Name    string `yaml:"name"`
	Durable bool   `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// WatcherConfig holds the watched folder and polling settings
type WatcherConfig struct {
	Backend             string        `yaml:"backend"`
	SourceFolderID      string        `yaml:"source_folder_id"`
	CompletedFolderName string        `yaml:"completed_folder_name"`
	MimeType            string        `yaml:"mime_type"`
	Interval            time.Duration `yaml:"interval"`
	PageSize            int           `yaml:"page_size"`
}

// WorkerConfig holds per-file processing settings
type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	FileTimeout time.Duration `yaml:"file_timeout"`
}

// NotifyConfig holds notification fan-out settings
type NotifyConfig struct {
	BufferSize  int    `yaml:"buffer_size"`
	EventSource string `yaml:"event_source"`
}

// GeminiConfig holds transcription settings
type GeminiConfig struct {
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	Prompt         string        `yaml:"prompt"`
	PollDelay      time.Duration `yaml:"poll_delay"`
	MaxPolls       int           `yaml:"max_polls"`
	InlineMaxBytes int64         `yaml:"inline_max_bytes"`
}

// DriveConfig holds Google service account credentials
type DriveConfig struct {
	ServiceAccountEmail string   `yaml:"service_account_email"`
	PrivateKey          string   `yaml:"private_key"`
	Scopes              []string `yaml:"scopes"`
}

// MinIOConfig holds object store connection settings
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// envOverrides lists the environment variables that take precedence over
// the config file. Unset variables leave the file value untouched.
type envOverrides struct {
	Port *int `envconfig:"PORT"`

	DBHost     *string `envconfig:"DB_HOST"`
	DBPort     *int    `envconfig:"DB_PORT"`
	DBUser     *string `envconfig:"DB_USER"`
	DBPassword *string `envconfig:"DB_PASSWORD"`
	DBName     *string `envconfig:"DB_NAME"`
	DBSSLMode  *string `envconfig:"DB_SSLMODE"`

	RabbitMQEnabled  *bool   `envconfig:"RABBITMQ_ENABLED"`
	RabbitMQHost     *string `envconfig:"RABBITMQ_HOST"`
	RabbitMQPort     *int    `envconfig:"RABBITMQ_PORT"`
	RabbitMQUser     *string `envconfig:"RABBITMQ_USER"`
	RabbitMQPassword *string `envconfig:"RABBITMQ_PASSWORD"`

	LogLevel *string `envconfig:"LOG_LEVEL"`

	Backend       *string        `envconfig:"WATCHER_BACKEND"`
	FolderID      *string        `envconfig:"FOLDER_ID"`
	WatchInterval *time.Duration `envconfig:"WATCH_INTERVAL"`

	GeminiAPIKey *string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  *string `envconfig:"GEMINI_MODEL"`

	ServiceAccountEmail *string `envconfig:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          *string `envconfig:"GOOGLE_PRIVATE_KEY"`

	MinIOEndpoint  *string `envconfig:"MINIO_ENDPOINT"`
	MinIOAccessKey *string `envconfig:"MINIO_ACCESS_KEY"`
	MinIOSecretKey *string `envconfig:"MINIO_SECRET_KEY"`
	MinIOBucket    *string `envconfig:"MINIO_BUCKET"`
	MinIOUseSSL    *bool   `envconfig:"MINIO_USE_SSL"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// Load reads the configuration file, applies environment overrides and
// fills defaults. An empty path reads the environment only.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	set(&c.Server.Port, env.Port)

	set(&c.Database.Host, env.DBHost)
	set(&c.Database.Port, env.DBPort)
	set(&c.Database.User, env.DBUser)
	set(&c.Database.Password, env.DBPassword)
	set(&c.Database.Database, env.DBName)
	set(&c.Database.SSLMode, env.DBSSLMode)

	set(&c.RabbitMQ.Enabled, env.RabbitMQEnabled)
	set(&c.RabbitMQ.Host, env.RabbitMQHost)
	set(&c.RabbitMQ.Port, env.RabbitMQPort)
	set(&c.RabbitMQ.User, env.RabbitMQUser)
	set(&c.RabbitMQ.Password, env.RabbitMQPassword)

	set(&c.Logging.Level, env.LogLevel)

	set(&c.Watcher.Backend, env.Backend)
	set(&c.Watcher.SourceFolderID, env.FolderID)
	set(&c.Watcher.Interval, env.WatchInterval)

	set(&c.Gemini.APIKey, env.GeminiAPIKey)
	set(&c.Gemini.Model, env.GeminiModel)

	set(&c.Drive.ServiceAccountEmail, env.ServiceAccountEmail)
	set(&c.Drive.PrivateKey, env.PrivateKey)

	set(&c.MinIO.Endpoint, env.MinIOEndpoint)
	set(&c.MinIO.AccessKey, env.MinIOAccessKey)
	set(&c.MinIO.SecretKey, env.MinIOSecretKey)
	set(&c.MinIO.Bucket, env.MinIOBucket)
	set(&c.MinIO.UseSSL, env.MinIOUseSSL)

	if len(env.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = env.AllowedOrigins
	}

	// Keys pasted into a single-line env var carry literal \n sequences
	c.Drive.PrivateKey = strings.ReplaceAll(c.Drive.PrivateKey, `\n`, "\n")

	return nil
}

func set[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "drive-transcriber"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange.Name == "" {
		c.RabbitMQ.Exchange.Name = "transcription_events"
	}
	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "fanout"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Watcher.Backend == "" {
		c.Watcher.Backend = BackendDrive
	}
	if c.Watcher.CompletedFolderName == "" {
		c.Watcher.CompletedFolderName = "completed"
	}
	if c.Watcher.MimeType == "" {
		c.Watcher.MimeType = "video/mp4"
	}
	if c.Watcher.Interval == 0 {
		c.Watcher.Interval = 30 * time.Minute
	}
	if c.Watcher.PageSize == 0 {
		c.Watcher.PageSize = 10
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 1
	}
	if c.Notify.BufferSize == 0 {
		c.Notify.BufferSize = 16
	}
}

// Validate checks the settings needed to run the watcher and the HTTP server
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.ValidateDatabase(); err != nil {
		return err
	}

	if err := c.validateWatcher(); err != nil {
		return err
	}

	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api key is required")
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}

		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
	}

	return nil
}

// ValidateDatabase checks the database settings only
func (c *Config) ValidateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher interval must be greater than 0")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	switch c.Watcher.Backend {
	case BackendDrive:
		if c.Watcher.SourceFolderID == "" {
			return fmt.Errorf("watcher source_folder_id is required")
		}
		if c.Drive.ServiceAccountEmail == "" || c.Drive.PrivateKey == "" {
			return fmt.Errorf("missing required Google credentials")
		}
	case BackendMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("minio endpoint and bucket are required")
		}
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			return fmt.Errorf("missing required MinIO credentials")
		}
	default:
		return fmt.Errorf("unknown watcher backend: %q", c.Watcher.Backend)
	}

	return nil
}
