package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nerstream-ai/nerstream/internal/ner"
)

// ONNXConfig locates the model bundle for the token-classification engine.
type ONNXConfig struct {
	BundleDir string
	SeqLen    int
}

// ONNX runs a BIO-tagged token-classification model and merges per-token
// labels into entity spans. Safe for concurrent use: the single session
// is serialized behind a mutex, matching how the runtime tensors are
// shared.
type ONNX struct {
	session       *ort.AdvancedSession
	tokenizer     *WordPieceTokenizer
	labels        []string
	seqLen        int
	numLabels     int
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNX initializes the onnxruntime session, tokenizer, and label map
// from a bundle directory containing model.onnx, label_map.json, and
// tokenizer/vocab.txt.
func LoadONNX(cfg ONNXConfig) (*ONNX, error) {
	if cfg.BundleDir == "" {
		return nil, errors.New("bundle dir is empty")
	}
	seqLen := cfg.SeqLen
	if seqLen <= 0 {
		seqLen = 256
	}

	libPath := resolveSharedLibraryPath(cfg.BundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(cfg.BundleDir, "model.onnx")
	labelsPath := filepath.Join(cfg.BundleDir, "label_map.json")
	vocabPath := filepath.Join(cfg.BundleDir, "tokenizer", "vocab.txt")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	tokenizer, err := LoadWordPieceTokenizer(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(seqLen), int64(len(labels)))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNX{
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		seqLen:        seqLen,
		numLabels:     len(labels),
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Extract implements ner.Extractor. Long inputs are processed in
// seqLen-sized windows; spans are mapped back to the full text via the
// tokenizer's byte offsets.
func (e *ONNX) Extract(ctx context.Context, text string, types ner.TypeSet) (map[ner.EntityType][]string, error) {
	out := map[ner.EntityType][]string{}
	base := 0
	for base < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels, spans, covered, err := e.runWindow(text[base:])
		if err != nil {
			return nil, err
		}
		for _, span := range mergeBIO(labels, spans) {
			typ, ok := entityTypeForLabel(span.label)
			if !ok || !types.Contains(typ) {
				continue
			}
			out[typ] = append(out[typ], text[base+span.start:base+span.end])
		}
		if covered <= 0 {
			break
		}
		base += covered
	}
	return out, nil
}

// runWindow tokenizes a window of text, runs the session, and returns
// the argmax label per token plus how many bytes of the window the
// tokens covered.
func (e *ONNX) runWindow(text string) ([]string, []Span, int, error) {
	inputIDs, attn, spans := e.tokenizer.EncodeWithOffsets(text, e.seqLen)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputIDs.GetData(), inputIDs)
	copy(e.attentionMask.GetData(), attn)

	if err := e.session.Run(); err != nil {
		return nil, nil, 0, fmt.Errorf("onnx run: %w", err)
	}

	logits := e.output.GetData()
	labels := make([]string, len(spans))
	covered := 0
	for i := range spans {
		if spans[i].End > covered {
			covered = spans[i].End
		}
		base := i * e.numLabels
		if base >= len(logits) {
			break
		}
		best := 0
		bestScore := float32(-math.MaxFloat32)
		for j := 0; j < e.numLabels && base+j < len(logits); j++ {
			if logits[base+j] > bestScore {
				best = j
				bestScore = logits[base+j]
			}
		}
		if best < len(e.labels) {
			labels[i] = e.labels[best]
		}
	}
	return labels, spans, covered, nil
}

type labeledSpan struct {
	label string
	start int
	end   int
}

// mergeBIO folds per-token B-/I- labels into contiguous spans. A B-
// prefix or a type change opens a new span; O or a special token closes
// the current one.
func mergeBIO(labels []string, spans []Span) []labeledSpan {
	var out []labeledSpan
	var cur *labeledSpan

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for i, lbl := range labels {
		if i >= len(spans) || spans[i].Start < 0 {
			flush()
			continue
		}
		prefix, typ := splitBIOLabel(lbl)
		if typ == "" {
			flush()
			continue
		}
		if prefix == "B" || cur == nil || !strings.EqualFold(cur.label, typ) {
			flush()
			cur = &labeledSpan{label: typ, start: spans[i].Start, end: spans[i].End}
			continue
		}
		if spans[i].End > cur.end {
			cur.end = spans[i].End
		}
	}
	flush()
	return out
}

func splitBIOLabel(lbl string) (prefix, typ string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" || strings.EqualFold(lbl, "O") {
		return "", ""
	}
	parts := strings.SplitN(lbl, "-", 2)
	if len(parts) == 1 {
		return "", parts[0]
	}
	return strings.ToUpper(parts[0]), parts[1]
}

// entityTypeForLabel maps common NER label names onto the closed
// EntityType set.
func entityTypeForLabel(label string) (ner.EntityType, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PER", "PERSON":
		return ner.Person, true
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return ner.Organization, true
	case "LOC", "LOCATION", "GPE":
		return ner.Location, true
	}
	return "", false
}

// loadLabels reads label_map.json, accepting either a plain array or an
// index-keyed object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	labels := make([]string, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(labels) {
			return nil, fmt.Errorf("label map has bad index %q", k)
		}
		labels[idx] = v
	}
	return labels, nil
}

// resolveSharedLibraryPath locates the onnxruntime shared library. The
// ONNXRUNTIME_SHARED_LIBRARY_PATH env var wins; otherwise common names
// are probed under the bundle dir and system paths.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		filepath.Join(bundleDir, "lib"),
		bundleDir,
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
