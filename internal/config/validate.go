package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerstream-ai/nerstream/internal/ner"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxRequestBodyBytes < 0 {
		return errors.New("server.max_request_body_bytes must not be negative")
	}

	if cfg.Recognition.MaxContentSizeChars < 0 {
		return errors.New("recognition.max_content_size_chars must not be negative")
	}
	if cfg.Recognition.DefaultTimeoutMS <= 0 {
		return errors.New("recognition.default_timeout_ms must be positive")
	}
	if cfg.Recognition.MaxTimeoutMS < cfg.Recognition.DefaultTimeoutMS {
		return errors.New("recognition.max_timeout_ms must not be below default_timeout_ms")
	}
	if len(cfg.Recognition.EntityTypes) == 0 {
		return errors.New("recognition.entity_types must name at least one type")
	}
	for _, name := range cfg.Recognition.EntityTypes {
		if _, err := ner.ParseEntityType(name); err != nil {
			return fmt.Errorf("recognition.entity_types: %w", err)
		}
	}

	switch cfg.Engine.Type {
	case "rules":
	case "onnx":
		if strings.TrimSpace(cfg.Engine.BundleDir) == "" {
			return errors.New("engine.bundle_dir must be set when engine.type is onnx")
		}
		if cfg.Engine.SeqLen <= 0 {
			return errors.New("engine.seq_len must be positive")
		}
	default:
		return fmt.Errorf("engine.type %q is not supported (want rules or onnx)", cfg.Engine.Type)
	}

	if cfg.Telemetry.Enabled {
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return errors.New("telemetry.endpoint must be set when telemetry is enabled")
		}
		if cfg.Telemetry.Protocol != "grpc" && cfg.Telemetry.Protocol != "http" {
			return fmt.Errorf("telemetry.protocol %q is not supported (want grpc or http)", cfg.Telemetry.Protocol)
		}
	}

	return nil
}

// EntityTypeSet resolves the configured entity type names. Call Validate
// first; unknown names fail there with a better message.
func (c *RecognitionConfig) EntityTypeSet() (ner.TypeSet, error) {
	set := ner.TypeSet{}
	for _, name := range c.EntityTypes {
		t, err := ner.ParseEntityType(name)
		if err != nil {
			return nil, err
		}
		set[t] = struct{}{}
	}
	return set, nil
}
