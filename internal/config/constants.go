package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "segmentcli"
	AppVersion = "1.0.0"

	// Segmentation grid
	DefaultClusterCount    = 5
	DefaultSeedStart       = 1
	DefaultSeedEnd         = 299
	DefaultKMeansInit      = 10
	DefaultKMeansMaxIter   = 300
	DefaultKMeansTolerance = 1e-4
	DefaultWorkers         = 1
	DefaultBaselineScore   = 0.0

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Uploads
	DefaultMaxUploadBytes = 64 << 20

	// Network Timeouts
	DefaultOperationTimeout = 30 * time.Minute
	WebSocketPingPeriod     = 30 * time.Second
	WebSocketPongWait       = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"
	DefaultLogFile    = "logs/app.log"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Storage and messaging
	DefaultDatabaseSchema = "segmentation"
	DefaultKafkaTopic     = "customer-segments"
)

// API Endpoints
const (
	APIBasePath           = "/api/v1"
	SegmentationsEndpoint = "/api/v1/segmentations"
	HealthEndpoint        = "/healthz"
	ReadyEndpoint         = "/readyz"
	MetricsEndpoint       = "/metrics"
	WebSocketEndpoint     = "/ws"
)
