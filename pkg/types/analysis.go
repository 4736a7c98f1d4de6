// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "math"

// Routing selects which paper sources a query is sent to.
type Routing string

const (
	RoutingArxivOnly    Routing = "arxiv_only"
	RoutingSemanticOnly Routing = "semantic_only"
	RoutingBoth         Routing = "both"
)

// ParseRouting maps a raw routing value onto a Routing, falling back to
// RoutingBoth for anything outside the known set.
func ParseRouting(s string) Routing {
	switch r := Routing(s); r {
	case RoutingArxivOnly, RoutingSemanticOnly, RoutingBoth:
		return r
	default:
		return RoutingBoth
	}
}

// Includes reports whether the routing decision sends the query to src.
func (r Routing) Includes(src Source) bool {
	switch r {
	case RoutingArxivOnly:
		return src == SourceArxiv
	case RoutingSemanticOnly:
		return src == SourceSemanticScholar
	default:
		return true
	}
}

// Severity grades how strongly two claims conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ParseSeverity coerces any value outside high/medium/low to SeverityLow.
func ParseSeverity(s string) Severity {
	switch v := Severity(s); v {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return v
	default:
		return SeverityLow
	}
}

// Novelty grades how new a generated hypothesis is.
type Novelty string

const (
	NoveltyHigh   Novelty = "high"
	NoveltyMedium Novelty = "medium"
	NoveltyLow    Novelty = "low"
)

// ParseNovelty coerces any value outside high/medium/low to NoveltyMedium.
func ParseNovelty(s string) Novelty {
	switch v := Novelty(s); v {
	case NoveltyHigh, NoveltyMedium, NoveltyLow:
		return v
	default:
		return NoveltyMedium
	}
}

// Contradiction is a conflict detected between claims of two papers.
type Contradiction struct {
	ClaimA      string   `json:"claim_a" yaml:"claim_a"`
	ClaimB      string   `json:"claim_b" yaml:"claim_b"`
	PaperATitle string   `json:"paper_a_title" yaml:"paper_a_title"`
	PaperBTitle string   `json:"paper_b_title" yaml:"paper_b_title"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Topic       string   `json:"topic" yaml:"topic"`
}

// DefaultConfidence is used when a hypothesis arrives without a confidence value.
const DefaultConfidence = 0.5

// Hypothesis is a generated research hypothesis.
type Hypothesis struct {
	Hypothesis       string   `json:"hypothesis" yaml:"hypothesis"`
	Rationale        string   `json:"rationale" yaml:"rationale"`
	Confidence       float64  `json:"confidence" yaml:"confidence"`
	Novelty          Novelty  `json:"novelty" yaml:"novelty"`
	SuggestedMethod  string   `json:"suggested_method" yaml:"suggested_method"`
	SupportingPapers []string `json:"supporting_papers" yaml:"supporting_papers"`
}

// ClampConfidence limits c to [0, 1]. NaN maps to DefaultConfidence.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c):
		return DefaultConfidence
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
