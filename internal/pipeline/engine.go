// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pdiddy/synthesis-engine/internal/ledger"
	"github.com/pdiddy/synthesis-engine/internal/metrics"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// DefaultMaxPapers is used when a Request leaves MaxPapers at zero.
const DefaultMaxPapers = 10

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("pipeline: invalid request")

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Request is one research query.
type Request struct {
	Query     string `validate:"required,min=10,max=1000"`
	MaxPapers int    `validate:"min=4,max=20"`
}

// Engine runs queries. Each Run builds its own ledger and graph, so one
// Engine may serve concurrent queries.
type Engine struct {
	Capabilities

	// Cost holds the pricing table and the per-query limits.
	Cost types.CostConfig

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewQueryID returns 8 hex characters taken from a random UUID.
func NewQueryID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}

// Run answers req. The returned state is complete even when stages failed;
// their failures are listed in QueryState.Errors. When the query aborts the
// state is returned with the cost report of the calls made so far together
// with the error.
func (e *Engine) Run(ctx context.Context, req Request) (*QueryState, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.MaxPapers == 0 {
		req.MaxPapers = DefaultMaxPapers
	}
	if err := requestValidator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := NewQueryID()
	logger = logger.With(slog.String("query_id", id))

	l := ledger.New(ledger.Pricing(e.Cost.Pricing), ledger.Options{
		MaxCostPerQuery:  e.Cost.MaxCostPerQuery,
		WarningThreshold: e.Cost.WarningThreshold,
		Logger:           logger,
		OnRecord:         e.Metrics.AddCost,
		OnWarning:        e.Metrics.IncCostWarning,
	})
	if err := l.Start(id); err != nil {
		return nil, err
	}

	g, err := Build(e.Capabilities, l, Options{Logger: logger, Metrics: e.Metrics})
	if err != nil {
		_, _ = l.Finish()
		return nil, err
	}

	st := NewQueryState(id, req.Query, req.MaxPapers)
	start := time.Now()
	logger.Info("query started", slog.Int("max_papers", req.MaxPapers))

	if err := g.Run(ctx, st); err != nil {
		if l.Active() {
			if report, ferr := l.Finish(); ferr == nil {
				st.CostReport = &report
			}
		}
		e.Metrics.IncQuery(metrics.OutcomeAborted)
		logger.Error("query aborted",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)),
		)
		return st, fmt.Errorf("query %s aborted: %w", id, err)
	}

	e.Metrics.IncQuery(metrics.OutcomeCompleted)
	logger.Info("query completed",
		slog.Int("papers", len(st.Papers)),
		slog.Int("errors", len(st.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return st, nil
}
