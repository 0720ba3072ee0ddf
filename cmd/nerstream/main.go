package main

import (
	"context"
	"flag"
	"log"

	"github.com/nerstream-ai/nerstream/internal/config"
	"github.com/nerstream-ai/nerstream/internal/engine"
	"github.com/nerstream-ai/nerstream/internal/ner"
	"github.com/nerstream-ai/nerstream/internal/server"
	"github.com/nerstream-ai/nerstream/internal/telemetry"
)

var version = "dev"

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "nerstream.yaml", "Path to nerstream config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("failed to build %s engine: %v", cfg.Engine.Type, err)
	}

	tel, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  version,
	})
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}
	defer tel.Shutdown(context.Background())

	srv := server.New(cfg, eng, tel)

	log.Printf("Starting nerstream (%s engine) on %s...", cfg.Engine.Type, addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildEngine(cfg *config.Config) (ner.Extractor, error) {
	if cfg.Engine.Type == "onnx" {
		return engine.LoadONNX(engine.ONNXConfig{
			BundleDir: cfg.Engine.BundleDir,
			SeqLen:    cfg.Engine.SeqLen,
		})
	}
	return engine.NewRules(), nil
}
