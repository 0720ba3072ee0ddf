package ner

import (
	"fmt"
	"sort"
	"strings"
)

// EntityType is a category of named entity a caller can request.
type EntityType string

const (
	Person       EntityType = "PERSON"
	Organization EntityType = "ORGANIZATION"
	Location     EntityType = "LOCATION"
)

// AllEntityTypes lists every supported type in stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{Person, Organization, Location}
}

// ParseEntityType maps a case-insensitive name to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(strings.ToUpper(strings.TrimSpace(s))) {
	case Person:
		return Person, nil
	case Organization:
		return Organization, nil
	case Location:
		return Location, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// TypeSet is the set of entity types requested for a recognition call.
// Order is irrelevant; membership is what matters.
type TypeSet map[EntityType]struct{}

// NewTypeSet builds a set from the given types.
func NewTypeSet(types ...EntityType) TypeSet {
	set := make(TypeSet, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// ParseTypeSet parses a comma-separated list of type names.
func ParseTypeSet(s string) (TypeSet, error) {
	set := TypeSet{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseEntityType(part)
		if err != nil {
			return nil, err
		}
		set[t] = struct{}{}
	}
	return set, nil
}

// Contains reports whether t is in the set.
func (s TypeSet) Contains(t EntityType) bool {
	_, ok := s[t]
	return ok
}

// Types returns the members in stable order.
func (s TypeSet) Types() []EntityType {
	out := make([]EntityType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Result maps each requested entity type to its distinct matches.
// Every requested type is present as a key, with an empty (non-nil)
// slice when nothing matched. Match order is unspecified.
type Result map[EntityType][]string

// shapeResult narrows raw engine output to exactly the requested types,
// collapsing duplicate matches and filling absent types with empty sets.
func shapeResult(raw map[EntityType][]string, types TypeSet) Result {
	res := make(Result, len(types))
	for t := range types {
		seen := map[string]struct{}{}
		distinct := []string{}
		for _, match := range raw[t] {
			if match == "" {
				continue
			}
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			distinct = append(distinct, match)
		}
		res[t] = distinct
	}
	return res
}

// Settings holds the per-call recognition limits.
// A zero MaxContentSizeChars means the decoded size is unbounded.
type Settings struct {
	MaxContentSizeChars int
}
