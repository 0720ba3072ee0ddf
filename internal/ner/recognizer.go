// Package ner implements the streaming named-entity recognition pipeline:
// encoding detection over the stream's lead bytes, bounded incremental
// decoding, deadline-bounded execution, and shaping of raw engine output
// into a stable per-type result map.
package ner

import (
	"context"
	"io"
	"time"
)

// Extractor is the capability the recognizer needs from an NER engine:
// given fully decoded text and the requested types, return the matches
// found, grouped by type. Implementations must be safe for concurrent
// use; the recognizer invokes one engine from many calls at once.
type Extractor interface {
	Extract(ctx context.Context, text string, types TypeSet) (map[EntityType][]string, error)
}

// Stats reports how long the pipeline stages of one call took. A stage
// duration is zero when the call was abandoned before the stage ran, as
// on a deadline the runner notices first.
type Stats struct {
	DecodeDuration  time.Duration
	ExtractDuration time.Duration
}

// Recognizer extracts entities of a fixed set of types from byte streams
// of unknown encoding, under a per-call deadline and a decoded-size cap.
// A Recognizer holds no call-local state and may be shared freely across
// goroutines; every call allocates its own decode buffers.
type Recognizer struct {
	types    TypeSet
	settings Settings
	engine   Extractor
}

// NewRecognizer builds a recognizer for the given requested types.
func NewRecognizer(types TypeSet, settings Settings, engine Extractor) *Recognizer {
	return &Recognizer{types: types, settings: settings, engine: engine}
}

// ExtractEntities reads stream to completion, decodes it, and returns the
// entities found, keyed by exactly the requested types (empty set for a
// type with no matches). The whole detect+decode+extract sequence runs
// under timeout; when it elapses first the caller gets a TIMEOUT error
// without waiting for late data. Decoding always finishes (or fails)
// before extraction starts, so the engine never sees partial text. The
// stream belongs to the caller and is never closed here.
//
// Failures carry one of the recognition codes (CONTENT_TOO_LARGE,
// TIMEOUT, IO_ERROR, INVALID_ENCODING) and are terminal: no partial
// result accompanies them.
func (r *Recognizer) ExtractEntities(ctx context.Context, stream io.Reader, timeout time.Duration) (Result, error) {
	result, _, err := r.ExtractEntitiesTimed(ctx, stream, timeout)
	return result, err
}

// ExtractEntitiesTimed behaves like ExtractEntities and additionally
// reports how long the decode and extract stages took, for callers that
// record per-stage metrics.
func (r *Recognizer) ExtractEntitiesTimed(ctx context.Context, stream io.Reader, timeout time.Duration) (Result, Stats, error) {
	return runWithDeadline(ctx, timeout, func(ctx context.Context) (Result, Stats, error) {
		var stats Stats

		decodeStart := time.Now()
		text, err := decodeAll(ctx, stream, r.settings.MaxContentSizeChars)
		stats.DecodeDuration = time.Since(decodeStart)
		if err != nil {
			return nil, stats, err
		}

		extractStart := time.Now()
		raw, err := r.engine.Extract(ctx, text, r.types)
		stats.ExtractDuration = time.Since(extractStart)
		if err != nil {
			return nil, stats, err
		}

		return shapeResult(raw, r.types), stats, nil
	})
}
