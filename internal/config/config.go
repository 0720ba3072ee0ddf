package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerstream-ai/nerstream/internal/ner"
)

// Config holds nerstream configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Engine      EngineConfig      `yaml:"engine"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
	ReadHeaderTimeoutMS int    `yaml:"read_header_timeout_ms"`
	IdleTimeoutMS       int    `yaml:"idle_timeout_ms"`
	MaxRequestBodyBytes int64  `yaml:"max_request_body_bytes"` // 0 = unbounded
}

func (c *ServerConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutMS) * time.Millisecond
}

func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

type RecognitionConfig struct {
	MaxContentSizeChars int      `yaml:"max_content_size_chars"` // 0 = unbounded
	DefaultTimeoutMS    int      `yaml:"default_timeout_ms"`
	MaxTimeoutMS        int      `yaml:"max_timeout_ms"` // cap on per-request overrides
	EntityTypes         []string `yaml:"entity_types"`
}

func (c *RecognitionConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMS) * time.Millisecond
}

func (c *RecognitionConfig) MaxTimeout() time.Duration {
	return time.Duration(c.MaxTimeoutMS) * time.Millisecond
}

type EngineConfig struct {
	Type      string `yaml:"type"`       // rules | onnx
	BundleDir string `yaml:"bundle_dir"` // onnx model bundle directory
	SeqLen    int    `yaml:"seq_len"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadHeaderTimeoutMS <= 0 {
		cfg.Server.ReadHeaderTimeoutMS = 5000
	}
	if cfg.Server.IdleTimeoutMS <= 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}

	if cfg.Recognition.DefaultTimeoutMS <= 0 {
		cfg.Recognition.DefaultTimeoutMS = 30000
	}
	if cfg.Recognition.MaxTimeoutMS <= 0 {
		cfg.Recognition.MaxTimeoutMS = 120000
	}
	if len(cfg.Recognition.EntityTypes) == 0 {
		for _, t := range ner.AllEntityTypes() {
			cfg.Recognition.EntityTypes = append(cfg.Recognition.EntityTypes, string(t))
		}
	}

	if cfg.Engine.Type == "" {
		cfg.Engine.Type = "rules"
	}
	if cfg.Engine.SeqLen <= 0 {
		cfg.Engine.SeqLen = 256
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "nerstream"
	}
}
