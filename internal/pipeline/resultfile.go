// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// ResultFile is the on-disk representation of a finished query. A saved
// result can be printed again later without re-running the pipeline.
type ResultFile struct {
	Query   ResultParams  `yaml:"query"`
	Config  ResultConfig  `yaml:"config"`
	Result  QueryState    `yaml:"result"`
	Summary ResultSummary `yaml:"summary"`
}

// ResultParams stores the request that produced the result.
type ResultParams struct {
	Text      string `yaml:"text"`
	MaxPapers int    `yaml:"max_papers"`
}

// ResultConfig stores the models and limits the query ran with.
type ResultConfig struct {
	Models          map[string]string `yaml:"models,omitempty"`
	MaxCostPerQuery float64           `yaml:"max_cost_per_query,omitempty"`
}

// ResultSummary stores result counts and a timestamp.
type ResultSummary struct {
	Papers         int       `yaml:"papers"`
	Contradictions int       `yaml:"contradictions"`
	Hypotheses     int       `yaml:"hypotheses"`
	Errors         int       `yaml:"errors"`
	TotalCostUSD   float64   `yaml:"total_cost_usd"`
	Aborted        string    `yaml:"aborted,omitempty"`
	Timestamp      time.Time `yaml:"timestamp"`
}

// NewResultFile captures st. runErr is the error Engine.Run returned with
// the state, if any.
func NewResultFile(st *QueryState, cfg ResultConfig, runErr error) ResultFile {
	rf := ResultFile{
		Query:  ResultParams{Text: st.Query, MaxPapers: st.MaxPapers},
		Config: cfg,
		Result: *st,
		Summary: ResultSummary{
			Papers:         len(st.Papers),
			Contradictions: len(st.Contradictions),
			Hypotheses:     len(st.Hypotheses),
			Errors:         len(st.Errors),
			Timestamp:      time.Now().UTC(),
		},
	}
	if st.CostReport != nil {
		rf.Summary.TotalCostUSD = st.CostReport.TotalCostUSD
	}
	if runErr != nil {
		rf.Summary.Aborted = runErr.Error()
	}
	return rf
}

// WriteResultFile saves rf to path as YAML.
func WriteResultFile(path string, rf ResultFile) error {
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}
