// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"fmt"
	"strings"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Pricing maps model identifiers and model-family prefixes to rates. It is
// read-only once built and safe to share across concurrent queries.
type Pricing map[string]types.Rate

// Resolve returns the rate for model. An exact key wins; otherwise the
// longest registered key that prefixes model is used, so a versioned name
// such as "claude-sonnet-4-6" resolves to the "claude-sonnet-4" family.
func (p Pricing) Resolve(model string) (types.Rate, error) {
	if r, ok := p[model]; ok {
		return r, nil
	}
	var (
		best    string
		bestLen = -1
	)
	for key := range p {
		if key == "" || !strings.HasPrefix(model, key) {
			continue
		}
		// Equal lengths cannot both prefix model unless equal, so ties are impossible.
		if len(key) > bestLen {
			best, bestLen = key, len(key)
		}
	}
	if bestLen < 0 {
		return types.Rate{}, fmt.Errorf("%w: %q", ErrUnknownPricing, model)
	}
	return p[best], nil
}

// Cost computes the USD cost of a call at rate r.
func Cost(r types.Rate, inputUnits, outputUnits int) float64 {
	return (float64(inputUnits)*r.Input + float64(outputUnits)*r.Output) / 1_000_000
}
