// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

type retryModel struct {
	Model
	maxRetries int
}

// WithRetry retries failed invocations of m up to maxRetries times with
// exponential backoff. Malformed output and context errors are returned
// immediately.
func WithRetry(m Model, maxRetries int) Model {
	return &retryModel{Model: m, maxRetries: maxRetries}
}

func (r *retryModel) Invoke(ctx context.Context, system, user string) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := r.Model.Invoke(ctx, system, user)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("%w: %v", ctxErr, err)
		}
		if errors.Is(err, ErrMalformedOutput) {
			return Response{}, err
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}
