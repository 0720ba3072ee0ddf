package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nerstream-ai/nerstream/internal/config"
	"github.com/nerstream-ai/nerstream/internal/engine"
	"github.com/nerstream-ai/nerstream/internal/ner"
	"github.com/nerstream-ai/nerstream/internal/redact"
)

func main() {
	cfgPath := flag.String("config", "", "path to config yaml (required)")
	n := flag.Int("n", 200, "number of iterations")
	textFlag := flag.String("text", "My name is Sue Jones and I work for Acme Corp in London.", "text to recognize")
	file := flag.String("file", "", "read the input text from a file instead of -text")
	typesFlag := flag.String("types", "PERSON,ORGANIZATION,LOCATION", "comma-separated entity types")
	timeout := flag.Duration("timeout", 30*time.Second, "per-call deadline")
	flag.Parse()

	if *cfgPath == "" {
		log.Fatalf("config flag is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	text := *textFlag
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("read input file: %v", err)
		}
		text = string(data)
	}

	types, err := ner.ParseTypeSet(*typesFlag)
	if err != nil {
		log.Fatalf("parse types: %v", err)
	}

	var eng ner.Extractor
	if cfg.Engine.Type == "onnx" {
		eng, err = engine.LoadONNX(engine.ONNXConfig{BundleDir: cfg.Engine.BundleDir, SeqLen: cfg.Engine.SeqLen})
		if err != nil {
			log.Fatalf("load onnx engine: %v", err)
		}
	} else {
		eng = engine.NewRules()
	}

	recognizer := ner.NewRecognizer(types, ner.Settings{MaxContentSizeChars: cfg.Recognition.MaxContentSizeChars}, eng)
	ctx := context.Background()

	// Warmup so lazy engine initialization doesn't skew the numbers.
	for i := 0; i < 5; i++ {
		if _, err := recognizer.ExtractEntities(ctx, strings.NewReader(text), *timeout); err != nil {
			redact.Fatalf("warmup run failed input=%q: %v", redact.Preview(text, 48), err)
		}
	}

	if *n <= 0 {
		*n = 1
	}

	durations := make([]time.Duration, 0, *n)
	for i := 0; i < *n; i++ {
		start := time.Now()
		if _, err := recognizer.ExtractEntities(ctx, strings.NewReader(text), *timeout); err != nil {
			redact.Fatalf("recognition failed input=%q: %v", redact.Preview(text, 48), err)
		}
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Microseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Microseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Microseconds()) / 1000.0

	fmt.Printf("bench: n=%d avg_ms=%.2f p50_ms=%.2f p95_ms=%.2f engine=%s chars=%d\n",
		len(durations),
		avg,
		p50,
		p95,
		cfg.Engine.Type,
		len([]rune(text)),
	)
}
