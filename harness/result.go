// Package harness runs external sort implementations and turns their
// free-form output into comparable results.
package harness

import (
	"fmt"
	"iter"
	"slices"
)

// ParsedResult is the structured output of one target. Sequence holds
// the integers in the order they were printed; the harness never sorts
// or repairs it.
type ParsedResult struct {
	Sequence       []int        `json:"sequence"`
	ElapsedSeconds *float64     `json:"elapsed_seconds"`
	Diagnostics    []Diagnostic `json:"diagnostics,omitempty"`
}

// Elapsed returns the reported elapsed time and whether one was found.
func (r ParsedResult) Elapsed() (float64, bool) {
	if r.ElapsedSeconds == nil {
		return 0, false
	}

	return *r.ElapsedSeconds, true
}

// ResultSet maps target labels to results in insertion order. The first
// entry is the reference for verification.
type ResultSet struct {
	labels  []string
	results map[string]ParsedResult
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[string]ParsedResult)}
}

// Add appends a result under label. Labels must be unique.
func (s *ResultSet) Add(label string, r ParsedResult) error {
	if _, ok := s.results[label]; ok {
		return fmt.Errorf("duplicate result label %q", label)
	}

	s.labels = append(s.labels, label)
	s.results[label] = r.clone()

	return nil
}

// Get returns a copy of the result stored under label.
func (s *ResultSet) Get(label string) (ParsedResult, bool) {
	r, ok := s.results[label]

	return r.clone(), ok
}

// Len returns the number of results.
func (s *ResultSet) Len() int {
	return len(s.labels)
}

// Labels returns the labels in insertion order.
func (s *ResultSet) Labels() []string {
	return slices.Clone(s.labels)
}

// Reference returns the first inserted entry.
func (s *ResultSet) Reference() (string, ParsedResult, bool) {
	if len(s.labels) == 0 {
		return "", ParsedResult{}, false
	}

	label := s.labels[0]

	return label, s.results[label].clone(), true
}

// All iterates over copies of the entries in insertion order.
func (s *ResultSet) All() iter.Seq2[string, ParsedResult] {
	return func(yield func(string, ParsedResult) bool) {
		for _, label := range s.labels {
			if !yield(label, s.results[label].clone()) {
				return
			}
		}
	}
}

func (r ParsedResult) clone() ParsedResult {
	r.Sequence = slices.Clone(r.Sequence)
	r.Diagnostics = slices.Clone(r.Diagnostics)

	if r.ElapsedSeconds != nil {
		v := *r.ElapsedSeconds
		r.ElapsedSeconds = &v
	}

	return r
}
