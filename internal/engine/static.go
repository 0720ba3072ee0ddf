package engine

import (
	"context"
	"time"

	"github.com/nerstream-ai/nerstream/internal/ner"
)

// Static is a canned engine for tests: it returns a fixed result map,
// optionally after a delay, optionally failing instead.
type Static struct {
	Entities map[ner.EntityType][]string
	Error    error
	Delay    time.Duration
}

func NewStatic(entities map[ner.EntityType][]string) *Static {
	return &Static{Entities: entities}
}

func (s *Static) Extract(ctx context.Context, _ string, _ ner.TypeSet) (map[ner.EntityType][]string, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Error != nil {
		return nil, s.Error
	}
	out := make(map[ner.EntityType][]string, len(s.Entities))
	for t, matches := range s.Entities {
		out[t] = append([]string(nil), matches...)
	}
	return out, nil
}
