// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logstore persists one record per answered query in SQLite and
// summarizes recent spend.
package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// timestampLayout is fixed width so lexical order matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Store manages the query log SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS query_logs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			query_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			query TEXT NOT NULL,
			total_cost_usd REAL NOT NULL,
			total_latency_ms REAL NOT NULL,
			num_papers INTEGER NOT NULL,
			num_contradictions INTEGER NOT NULL,
			num_hypotheses INTEGER NOT NULL,
			node_breakdown TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_logs_timestamp ON query_logs(timestamp)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Insert appends rec. The query text is truncated to types.MaxLoggedQueryLength
// and a zero timestamp is replaced with the current time.
func (s *Store) Insert(ctx context.Context, rec types.QueryLog) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	breakdown := rec.NodeBreakdown
	if breakdown == nil {
		breakdown = []types.CostEntry{}
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("marshaling breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_logs (query_id, timestamp, query, total_cost_usd, total_latency_ms,
			num_papers, num_contradictions, num_hypotheses, node_breakdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID,
		rec.Timestamp.UTC().Format(timestampLayout),
		types.TruncateQuery(rec.Query),
		rec.TotalCostUSD,
		rec.TotalLatencyMS,
		rec.NumPapers,
		rec.NumContradictions,
		rec.NumHypotheses,
		string(breakdownJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting query log %s: %w", rec.QueryID, err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]types.QueryLog, error) {
	if n <= 0 {
		return []types.QueryLog{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, timestamp, query, total_cost_usd, total_latency_ms,
			num_papers, num_contradictions, num_hypotheses, node_breakdown
		FROM query_logs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent logs: %w", err)
	}
	defer rows.Close()

	logs := []types.QueryLog{}
	for rows.Next() {
		var (
			rec           types.QueryLog
			ts, breakdown string
		)
		if err := rows.Scan(&rec.QueryID, &ts, &rec.Query, &rec.TotalCostUSD, &rec.TotalLatencyMS,
			&rec.NumPapers, &rec.NumContradictions, &rec.NumHypotheses, &breakdown); err != nil {
			return nil, fmt.Errorf("scanning query log: %w", err)
		}
		if rec.Timestamp, err = time.Parse(timestampLayout, ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp of %s: %w", rec.QueryID, err)
		}
		if err := json.Unmarshal([]byte(breakdown), &rec.NodeBreakdown); err != nil {
			return nil, fmt.Errorf("parsing breakdown of %s: %w", rec.QueryID, err)
		}
		logs = append(logs, rec)
	}
	return logs, rows.Err()
}
