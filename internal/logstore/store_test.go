// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "query_logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleLog(id string, ts time.Time, cost float64, papers int) types.QueryLog {
	return types.QueryLog{
		QueryID:           id,
		Timestamp:         ts,
		Query:             "how do transformers scale",
		TotalCostUSD:      cost,
		TotalLatencyMS:    1000 * cost,
		NumPapers:         papers,
		NumContradictions: 1,
		NumHypotheses:     3,
		NodeBreakdown: []types.CostEntry{
			{NodeName: "router", Model: "gpt-4o-mini", InputTokens: 100, OutputTokens: 20, LatencyMS: 150, CostUSD: 0.000027},
		},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := testStore(t)

	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='query_logs'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "query_logs", name)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Insert(context.Background(), sampleLog("a", time.Now(), 0.01, 5)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	logs, err := s2.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestInsertAndRecentRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 30, 0, 123456000, time.UTC)

	want := sampleLog("abc12345", ts, 0.0123, 8)
	require.NoError(t, s.Insert(ctx, want))

	logs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, want, logs[0])
}

func TestInsertTruncatesQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := sampleLog("long", time.Now(), 0, 0)
	rec.Query = strings.Repeat("q", types.MaxLoggedQueryLength+100)
	require.NoError(t, s.Insert(ctx, rec))

	logs, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Len(t, logs[0].Query, types.MaxLoggedQueryLength)
}

func TestInsertDefaultsTimestampAndBreakdown(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	require.NoError(t, s.Insert(ctx, types.QueryLog{QueryID: "zero", Query: "q"}))

	logs, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Timestamp.After(before))
	assert.NotNil(t, logs[0].NodeBreakdown)
	assert.Empty(t, logs[0].NodeBreakdown)
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, s.Insert(ctx, sampleLog(id, base.Add(time.Duration(i)*time.Hour), 0.01, i)))
	}
	// Inserted out of order.
	require.NoError(t, s.Insert(ctx, sampleLog("earliest", base.Add(-time.Hour), 0.01, 0)))

	logs, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.QueryID
	}
	assert.Equal(t, []string{"fourth", "third", "second"}, ids)

	none, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecentAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Recent(context.Background(), 5)
	assert.Error(t, err)
	assert.Error(t, s.Insert(context.Background(), sampleLog("x", time.Now(), 0, 0)))
}

// --- Stats ---

type failingReader struct{}

func (failingReader) Recent(context.Context, int) ([]types.QueryLog, error) {
	return nil, errors.New("database is locked")
}

func TestSummarize(t *testing.T) {
	logs := []types.QueryLog{
		sampleLog("a", time.Now(), 0.02, 10),
		sampleLog("b", time.Now(), 0.04, 6),
	}
	got := Summarize(logs)
	assert.Equal(t, 2, got.TotalQueries)
	assert.InDelta(t, 0.03, got.AvgCostUSD, 1e-12)
	assert.InDelta(t, 30.0, got.AvgLatencyMS, 1e-9)
	assert.InDelta(t, 8.0, got.AvgPapers, 1e-12)
	assert.Len(t, got.RecentQueries, 2)
	assert.Empty(t, got.Error)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	assert.Zero(t, got.TotalQueries)
	assert.Zero(t, got.AvgCostUSD)
	assert.NotNil(t, got.RecentQueries)
}

func TestStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		require.NoError(t, s.Insert(ctx, sampleLog("q", base.Add(time.Duration(i)*time.Minute), float64(i), i)))
	}

	got := Stats(ctx, s, 10, nil)
	assert.Equal(t, 10, got.TotalQueries)
	// Logs 2..11 are the ten most recent.
	assert.InDelta(t, 6.5, got.AvgCostUSD, 1e-9)
	assert.InDelta(t, 6.5, got.AvgPapers, 1e-9)
}

func TestStatsDegradesOnReadFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := Stats(context.Background(), failingReader{}, 10, logger)

	assert.Zero(t, got.TotalQueries)
	assert.Zero(t, got.AvgCostUSD)
	assert.Zero(t, got.AvgLatencyMS)
	assert.Zero(t, got.AvgPapers)
	assert.NotNil(t, got.RecentQueries)
	assert.Equal(t, "database is locked", got.Error)
}
