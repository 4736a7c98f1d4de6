// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"

	"github.com/pdiddy/synthesis-engine/internal/ledger"
	"github.com/pdiddy/synthesis-engine/internal/llm"
)

// Error kinds used in logs and metrics.
const (
	kindTransport = "transport"
	kindMalformed = "malformed_output"
	kindPanic     = "panic"
)

// IsFatal reports whether err must abort the whole query instead of being
// recovered by the stage that saw it: the spending cap and ledger misuse.
func IsFatal(err error) bool {
	return errors.Is(err, ledger.ErrCostLimitExceeded) ||
		errors.Is(err, ledger.ErrAlreadyActive) ||
		errors.Is(err, ledger.ErrNoActiveQuery)
}

// aborts reports whether err stops the query. Besides IsFatal errors, any
// failure seen after ctx is done aborts. An adapter's own timeout does not,
// even though HTTP client timeouts match context.DeadlineExceeded.
func aborts(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return IsFatal(err) || ctx.Err() != nil
}

// errorKind separates "provider returned garbage" from every other failure.
func errorKind(err error) string {
	if errors.Is(err, llm.ErrMalformedOutput) {
		return kindMalformed
	}
	return kindTransport
}
