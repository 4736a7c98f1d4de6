// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the paper-source and
// model adapters.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// MaxRetryAfter caps how long a server-supplied Retry-After may stall a request.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests). The wait is the server's Retry-After value when present,
// otherwise exponential backoff starting at RetryBaseDelay: 10 s, 20 s,
// 40 s, 80 s, 160 s.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a wait the function returns ctx.Err(). After exhausting retries
// the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		wait, fromHeader := RetryAfter(resp.Header.Get("Retry-After"), time.Now())
		if !fromHeader {
			wait = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		slog.Default().Debug("rate limited, retrying",
			slog.String("host", req.URL.Host),
			slog.Duration("wait", wait),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", maxRetries),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RetryAfter parses a Retry-After header given either as delay seconds or
// as an HTTP date relative to now. The result is capped at MaxRetryAfter.
// ok is false when the header is absent or unparseable.
func RetryAfter(header string, now time.Time) (wait time.Duration, ok bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0, false
		}
		wait = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(header); err == nil {
		wait = t.Sub(now)
		if wait < 0 {
			wait = 0
		}
	} else {
		return 0, false
	}
	if wait > MaxRetryAfter {
		wait = MaxRetryAfter
	}
	return wait, true
}
