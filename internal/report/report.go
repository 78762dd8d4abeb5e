// Package report keeps the per-source outcome of a pipeline step and writes
// it as a JSON stats file.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Outcome is what happened to one logical source.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"   // source had no data rows, nothing written
	OutcomeSkipped Outcome = "skipped" // source missing, step continued
	OutcomeFailed  Outcome = "failed"
)

// SourceResult is the outcome of one logical source within a step.
type SourceResult struct {
	Name      string  `json:"name"`
	Input     string  `json:"input,omitempty"`
	Output    string  `json:"output,omitempty"`
	Outcome   Outcome `json:"outcome"`
	Rows      int64   `json:"rows,omitempty"`
	RowGroups int     `json:"row_groups,omitempty"`
	Bytes     int64   `json:"bytes,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Stats holds the metrics of one step run.
type Stats struct {
	mu    sync.Mutex
	start time.Time
	errs  []error

	Step                    string         `json:"step"`
	RunID                   string         `json:"run_id,omitempty"`
	StartedAt               time.Time      `json:"started_at"`
	TotalExecutionTime      string         `json:"total_execution_time"`
	SourcesFound            int            `json:"sources_found"`
	SourcesProcessed        int            `json:"sources_processed"`
	SourcesSkipped          int            `json:"sources_skipped"`
	SourcesFailed           int            `json:"sources_failed"`
	TotalRowsProcessed      int64          `json:"total_rows_processed"`
	TotalBytesProcessed     int64          `json:"total_bytes_processed"`
	ProcessingThroughputGBs float64        `json:"processing_throughput_gb_per_sec"`
	Sources                 []SourceResult `json:"sources"`
}

// New starts the stats of a step.
func New(step, runID string) *Stats {
	now := time.Now()
	return &Stats{
		start:     now,
		Step:      step,
		RunID:     runID,
		StartedAt: now.UTC(),
	}
}

// Add records the outcome of one source. A non-nil err marks it failed.
func (s *Stats) Add(r SourceResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		r.Outcome = OutcomeFailed
		r.Error = err.Error()
		s.errs = append(s.errs, err)
	}

	s.SourcesFound++
	switch r.Outcome {
	case OutcomeOK, OutcomeEmpty:
		s.SourcesProcessed++
	case OutcomeSkipped:
		s.SourcesSkipped++
	case OutcomeFailed:
		s.SourcesFailed++
	}
	s.TotalRowsProcessed += r.Rows
	s.TotalBytesProcessed += r.Bytes
	s.Sources = append(s.Sources, r)
}

// Finish stamps the execution time and throughput.
func (s *Stats) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := time.Since(s.start)
	s.TotalExecutionTime = duration.String()
	if duration.Seconds() > 0 {
		s.ProcessingThroughputGBs = float64(s.TotalBytesProcessed) / 1e9 / duration.Seconds()
	}
}

// Err joins the errors of every failed source, or returns nil.
func (s *Stats) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(s.errs...)
}

// Failed reports whether any source failed.
func (s *Stats) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.SourcesFailed > 0
}

// WriteFile writes the stats as indented JSON to path.
func (s *Stats) WriteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
