package config

import (
	"WindowSpectra/internal/engine/window"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExtractorConfig holds the windowing parameters.
type ExtractorConfig struct {
	WindowSize    float64 `yaml:"window_size"` // seconds
	TopN          int     `yaml:"top_n"`
	ProgressEvery int     `yaml:"progress_every"` // packets between progress log lines
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// FileConfig configures a writer that writes below a root directory.
type FileConfig struct {
	RootPath string `yaml:"root_path"`
}

// SQLiteConfig configures the gorm/sqlite writer.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS writer.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WriterDef defines a single feature sink.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	JSON       FileConfig       `yaml:"json"`
	Gob        FileConfig       `yaml:"gob"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	NATS       NATSConfig       `yaml:"nats"`
}

// APIConfig holds the settings of the HTTP and gRPC front end.
type APIConfig struct {
	ListenAddr      string           `yaml:"listen_addr"`
	GRPCListenAddr  string           `yaml:"grpc_listen_addr"`
	UploadDir       string           `yaml:"upload_dir"`
	MaxUploadSizeMB int64            `yaml:"max_upload_size_mb"`
	SessionDB       string           `yaml:"session_db"`
	ClickHouse      ClickHouseConfig `yaml:"clickhouse"` // optional, enables the ClickHouse query routes
}

// ProbeConfig holds the configuration for the NATS record subscriber.
type ProbeConfig struct {
	NATSURL     string            `yaml:"nats_url"`
	Subject     string            `yaml:"subject"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// PersistenceConfig controls how the probe keeps the records it receives.
type PersistenceConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	Encoding          string `yaml:"encoding"` // "gob" or "text"
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Writers   []WriterDef     `yaml:"writers"`
	API       APIConfig       `yaml:"api"`
	Probe     ProbeConfig     `yaml:"probe"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Extractor.WindowSize == 0 {
		c.Extractor.WindowSize = window.DefaultWindowSize
	}
	if c.Extractor.TopN == 0 {
		c.Extractor.TopN = window.DefaultTopN
	}
	if c.Extractor.ProgressEvery == 0 {
		c.Extractor.ProgressEvery = 500000
	}

	for i := range c.Writers {
		w := &c.Writers[i]
		switch w.Type {
		case "json":
			if w.JSON.RootPath == "" {
				w.JSON.RootPath = "data/processed"
			}
		case "gob":
			if w.Gob.RootPath == "" {
				w.Gob.RootPath = "data/snapshots"
			}
		case "sqlite":
			if w.SQLite.Path == "" {
				w.SQLite.Path = "data/windowspectra.db"
			}
		case "nats":
			if w.NATS.Subject == "" {
				w.NATS.Subject = "windowspectra.windows"
			}
		}
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.GRPCListenAddr == "" {
		c.API.GRPCListenAddr = ":50051"
	}
	if c.API.UploadDir == "" {
		c.API.UploadDir = "data/uploads"
	}
	if c.API.MaxUploadSizeMB == 0 {
		c.API.MaxUploadSizeMB = 4096
	}
	if c.API.SessionDB == "" {
		c.API.SessionDB = "data/windowspectra.db"
	}

	if c.Probe.Subject == "" {
		c.Probe.Subject = "windowspectra.windows"
	}
	if c.Probe.Persistence.Path == "" {
		c.Probe.Persistence.Path = "data/probe"
	}
	if c.Probe.Persistence.Encoding == "" {
		c.Probe.Persistence.Encoding = "text"
	}
}

func (c *Config) validate() error {
	ws := c.Extractor.WindowSize
	if ws <= 0 || ws != ws {
		return fmt.Errorf("invalid extractor config: %w: got %v", window.ErrInvalidWindowSize, ws)
	}
	if c.Extractor.TopN < 0 {
		return fmt.Errorf("invalid extractor config: top_n must not be negative, got %d", c.Extractor.TopN)
	}
	if c.API.MaxUploadSizeMB < 0 {
		return fmt.Errorf("invalid api config: max_upload_size_mb must not be negative, got %d", c.API.MaxUploadSizeMB)
	}
	return nil
}

// WindowOptions converts the extractor section into engine options.
func (c *Config) WindowOptions(observer window.Observer) window.Options {
	return window.Options{
		WindowSize: c.Extractor.WindowSize,
		TopN:       c.Extractor.TopN,
		Observer:   observer,
	}
}
