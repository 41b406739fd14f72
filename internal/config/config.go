package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "SEGMENT"

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" envconfig:"SERVER"`
	Security     SecurityConfig     `yaml:"security" envconfig:"SECURITY"`
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Paths        PathsConfig        `yaml:"paths" envconfig:"PATHS"`
	WebSocket    WebSocketConfig    `yaml:"websocket" envconfig:"WEBSOCKET"`
	Segmentation SegmentationConfig `yaml:"segmentation" envconfig:"SEGMENTATION"`
	Database     DatabaseConfig     `yaml:"database" envconfig:"DATABASE"`
	Kafka        KafkaConfig        `yaml:"kafka" envconfig:"KAFKA"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" validate:"gt=0"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"required_if=EnableCORS true"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against the executable directory.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" validate:"gt=0,ltfield=PongWait"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" validate:"gt=0"`
}

// SegmentationConfig controls the cluster selection grid
type SegmentationConfig struct {
	ClusterCount    int     `yaml:"cluster_count" envconfig:"CLUSTER_COUNT" validate:"min=2"`
	SeedStart       int64   `yaml:"seed_start" envconfig:"SEED_START"`
	SeedEnd         int64   `yaml:"seed_end" envconfig:"SEED_END" validate:"gtefield=SeedStart"`
	KMeansInit      int     `yaml:"kmeans_init" envconfig:"KMEANS_INIT" validate:"min=1"`
	KMeansMaxIter   int     `yaml:"kmeans_max_iter" envconfig:"KMEANS_MAX_ITER" validate:"min=1"`
	KMeansTolerance float64 `yaml:"kmeans_tolerance" envconfig:"KMEANS_TOLERANCE" validate:"gte=0"`
	Workers         int     `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	BaselineScore   float64 `yaml:"baseline_score" envconfig:"BASELINE_SCORE" validate:"gte=-1,lte=1"`
}

// DatabaseConfig contains the optional Postgres report store settings
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	URL      string `yaml:"url" envconfig:"URL" validate:"required_if=Enabled true"`
	Schema   string `yaml:"schema" envconfig:"SCHEMA" validate:"required"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"gte=0"`
}

// KafkaConfig contains the optional segment event publisher settings
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"ENABLED"`
	Brokers      []string      `yaml:"brokers" envconfig:"BROKERS" validate:"required_if=Enabled true"`
	Topic        string        `yaml:"topic" envconfig:"TOPIC" validate:"required"`
	ClientID     string        `yaml:"client_id" envconfig:"CLIENT_ID"`
	BatchTimeout time.Duration `yaml:"batch_timeout" envconfig:"BATCH_TIMEOUT" validate:"gte=0"`
}

// TelemetryConfig contains tracing and metrics settings
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	EnableTracing  bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceToConsole bool   `yaml:"trace_to_console" envconfig:"TRACE_TO_CONSOLE"`
}

// Load builds the configuration from defaults, the optional config file and
// SEGMENT_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(ConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// envconfig only touches fields whose variable is set
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate normalizes the logging section and checks every field constraint
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return validator.New().Struct(c)
}

// ConfigFilePath returns the path to the config file, or "" when none exists
func ConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     DefaultOperationTimeout,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: DefaultOperationTimeout,
			MaxUploadBytes:   DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Segmentation: SegmentationConfig{
			ClusterCount:    DefaultClusterCount,
			SeedStart:       DefaultSeedStart,
			SeedEnd:         DefaultSeedEnd,
			KMeansInit:      DefaultKMeansInit,
			KMeansMaxIter:   DefaultKMeansMaxIter,
			KMeansTolerance: DefaultKMeansTolerance,
			Workers:         DefaultWorkers,
			BaselineScore:   DefaultBaselineScore,
		},
		Database: DatabaseConfig{
			Schema:   DefaultDatabaseSchema,
			MaxConns: 4,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        DefaultKafkaTopic,
			ClientID:     AppName,
			BatchTimeout: 100 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			EnableTracing: true,
			EnableMetrics: true,
		},
	}
}
