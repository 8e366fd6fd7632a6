package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8995.
	Port int `envconfig:"PORT" default:"8995"`

	// DataDir is the root data directory. Defaults to ~/.angelia.
	DataDir string `envconfig:"ANGELIA_DATA_DIR"`

	// ChannelsFile is the channel configuration YAML. Defaults to <DataDir>/channels.yaml.
	ChannelsFile string `envconfig:"ANGELIA_CHANNELS_FILE"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogRetention is how long delivery history is kept.
	LogRetention time.Duration `envconfig:"ANGELIA_LOG_RETENTION" default:"720h"`

	// PruneInterval is how often expired delivery history is removed.
	PruneInterval time.Duration `envconfig:"ANGELIA_PRUNE_INTERVAL" default:"1h"`

	// CORSOrigins lists browser origins allowed to call the HTTP API.
	CORSOrigins []string `envconfig:"ANGELIA_CORS_ORIGINS"`

	// OTLPEndpoint enables OTLP/gRPC export of traces, metrics and logs when set.
	OTLPEndpoint string `envconfig:"ANGELIA_OTLP_ENDPOINT"`

	// OTLPInsecure disables TLS towards the OTLP collector.
	OTLPInsecure bool `envconfig:"ANGELIA_OTLP_INSECURE" default:"true"`

	// TraceSampleRatio is the parent-based trace sampling probability.
	TraceSampleRatio float64 `envconfig:"ANGELIA_TRACE_SAMPLE_RATIO" default:"1"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.angelia if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".angelia")
	}
	if c.ChannelsFile == "" {
		c.ChannelsFile = filepath.Join(c.DataDir, "channels.yaml")
	}
	if c.LogRetention <= 0 {
		return nil, fmt.Errorf("loading config: ANGELIA_LOG_RETENTION must be positive, got %s", c.LogRetention)
	}
	if c.PruneInterval <= 0 {
		return nil, fmt.Errorf("loading config: ANGELIA_PRUNE_INTERVAL must be positive, got %s", c.PruneInterval)
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.angelia/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DatabaseFile returns the path to the SQLite delivery history database.
func (c *AppConfig) DatabaseFile() string {
	return filepath.Join(c.DataDir, "angelia.db")
}
