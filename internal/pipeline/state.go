// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one research query through a fixed graph of stages:
// routing, concurrent paper fetches, deduplication, synthesis, contradiction
// detection, hypothesis generation, and cost auditing.
package pipeline

import (
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// QueryState is the record threaded through one pipeline execution. Stages
// read a snapshot of it and return an Update; only the Graph writes to it.
type QueryState struct {
	QueryID       string        `json:"query_id" yaml:"query_id"`
	Query         string        `json:"query" yaml:"query"`
	EnrichedQuery string        `json:"enriched_query" yaml:"enriched_query"`
	MaxPapers     int           `json:"max_papers" yaml:"max_papers"`
	Routing       types.Routing `json:"routing" yaml:"routing"`

	// Fetched holds each source's papers as returned by its fetch stage.
	Fetched map[types.Source][]types.Paper `json:"fetched" yaml:"fetched"`

	// Papers is the deduplicated, ranked set used by every later stage.
	Papers []types.Paper `json:"papers" yaml:"papers"`

	Synthesis      string                `json:"synthesis" yaml:"synthesis"`
	Contradictions []types.Contradiction `json:"contradictions" yaml:"contradictions"`
	Hypotheses     []types.Hypothesis    `json:"hypotheses" yaml:"hypotheses"`
	CostReport     *types.CostReport     `json:"cost_report,omitempty" yaml:"cost_report,omitempty"`

	// Errors collects one entry per recovered stage failure, in merge order.
	Errors []string `json:"errors" yaml:"errors"`
}

// NewQueryState returns the initial state for a query. Routing starts at
// both so a failed router still fans out to every source.
func NewQueryState(queryID, query string, maxPapers int) *QueryState {
	return &QueryState{
		QueryID:        queryID,
		Query:          query,
		EnrichedQuery:  query,
		MaxPapers:      maxPapers,
		Routing:        types.RoutingBoth,
		Fetched:        map[types.Source][]types.Paper{},
		Papers:         []types.Paper{},
		Contradictions: []types.Contradiction{},
		Hypotheses:     []types.Hypothesis{},
		Errors:         []string{},
	}
}

// Update is the delta one stage produces. A nil field means the stage did
// not produce it; a non-nil empty slice means it produced an empty result.
type Update struct {
	EnrichedQuery  *string
	Routing        *types.Routing
	Fetched        map[types.Source][]types.Paper
	Papers         []types.Paper
	Synthesis      *string
	Contradictions []types.Contradiction
	Hypotheses     []types.Hypothesis
	CostReport     *types.CostReport

	// Errors are appended to QueryState.Errors, never replacing them.
	Errors []string
}

// Apply merges u into s. Every field is last-write-wins except Errors,
// which is appended, and Fetched, which is merged per source.
func (s *QueryState) Apply(u Update) {
	if u.EnrichedQuery != nil {
		s.EnrichedQuery = *u.EnrichedQuery
	}
	if u.Routing != nil {
		s.Routing = *u.Routing
	}
	if u.Fetched != nil {
		if s.Fetched == nil {
			s.Fetched = make(map[types.Source][]types.Paper, len(u.Fetched))
		}
		for src, ps := range u.Fetched {
			s.Fetched[src] = ps
		}
	}
	if u.Papers != nil {
		s.Papers = u.Papers
	}
	if u.Synthesis != nil {
		s.Synthesis = *u.Synthesis
	}
	if u.Contradictions != nil {
		s.Contradictions = u.Contradictions
	}
	if u.Hypotheses != nil {
		s.Hypotheses = u.Hypotheses
	}
	if u.CostReport != nil {
		s.CostReport = u.CostReport
	}
	s.Errors = append(s.Errors, u.Errors...)
}

// snapshot returns a copy of s that stages may read while the Graph keeps
// ownership of s. Slices are shared; stages treat them as read-only.
func (s *QueryState) snapshot() QueryState {
	c := *s
	c.Fetched = make(map[types.Source][]types.Paper, len(s.Fetched))
	for src, ps := range s.Fetched {
		c.Fetched[src] = ps
	}
	c.Errors = append([]string(nil), s.Errors...)
	return c
}

func ptr[T any](v T) *T { return &v }
