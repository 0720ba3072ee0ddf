// Package engine provides the extraction engines that back the
// recognizer: a rule-based matcher that needs no model assets, an ONNX
// token-classification model, and a canned engine for tests.
package engine

import (
	"context"
	"regexp"
	"strings"

	"github.com/nerstream-ai/nerstream/internal/ner"
)

// Rules is the rule-based extraction engine. All detection logic lives
// in fixed regex patterns keyed by entity type; matches are heuristic,
// not statistical. The compiled patterns are read-only, so a single
// Rules value is safe for concurrent use.
type Rules struct {
	person       []*regexp.Regexp
	organization []*regexp.Regexp
	location     []*regexp.Regexp
}

// NewRules compiles the built-in pattern set.
func NewRules() *Rules {
	capName := `[A-Z][a-z]+(?:-[A-Z][a-z]+)?`

	return &Rules{
		person: []*regexp.Regexp{
			// introductions: "My name is Sue Jones", "this is Joe Bloggs"
			regexp.MustCompile(`\b(?i:my name is|i am|this is|name:)\s+(` + capName + `(?:\s+(?:[A-Z]\.\s+)?` + capName + `)+)`),
			// honorifics: "Dr Jane Smith", "Mr. Bloggs"
			regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof)\.?\s+(` + capName + `(?:\s+` + capName + `)*)`),
		},
		organization: []*regexp.Regexp{
			regexp.MustCompile(`\b((?:[A-Z][A-Za-z&]+\s+)+(?:Inc|Corp|Corporation|Ltd|Limited|LLC|GmbH|Group|Co)\b\.?)`),
		},
		location: []*regexp.Regexp{
			regexp.MustCompile(`\b(?i:in|at|from|near)\s+(` + capName + `(?:\s+` + capName + `)?)\b`),
		},
	}
}

// Extract implements ner.Extractor.
func (r *Rules) Extract(_ context.Context, text string, types ner.TypeSet) (map[ner.EntityType][]string, error) {
	out := map[ner.EntityType][]string{}
	if types.Contains(ner.Person) {
		out[ner.Person] = matchAll(r.person, text)
	}
	if types.Contains(ner.Organization) {
		out[ner.Organization] = matchAll(r.organization, text)
	}
	if types.Contains(ner.Location) {
		out[ner.Location] = matchAll(r.location, text)
	}
	return out, nil
}

func matchAll(patterns []*regexp.Regexp, text string) []string {
	var matches []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			match := strings.TrimRight(strings.TrimSpace(m[1]), ".")
			if match != "" {
				matches = append(matches, match)
			}
		}
	}
	return matches
}
