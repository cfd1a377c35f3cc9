// SPDX-License-Identifier: Apache-2.0

// Package memory implements the per-run context store. Each completed step
// contributes one record; records are write-once and live only as long as
// the run that produced them.
package memory

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Reader is the read-only view handed to the substitution engine
type Reader interface {
	Lookup(name string) (interface{}, bool)
}

// StepRecord holds the values a completed step produced. ID and Key are only
// meaningful when their Has flags are set; Result always carries the full
// response body.
type StepRecord struct {
	ID     interface{}
	Key    interface{}
	Result interface{}
	HasID  bool
	HasKey bool
}

// Store keeps per-step records indexed by step number. A store belongs to a
// single run and is not safe for concurrent use.
type Store struct {
	records map[int]StepRecord
}

// nameRegex matches the context key namespace: step_<n>_id, step_<n>_key,
// step_<n>_result
var nameRegex = regexp.MustCompile(`^step_([0-9]+)_(id|key|result)$`)

// NewStore creates an empty store for a fresh run
func NewStore() *Store {
	return &Store{
		records: make(map[int]StepRecord),
	}
}

// Record stores the outputs of a completed step. Writing the same step twice
// is an error; records are never overwritten.
func (s *Store) Record(index int, rec StepRecord) error {
	if index < 1 {
		return fmt.Errorf("invalid step index %d", index)
	}
	if _, exists := s.records[index]; exists {
		return fmt.Errorf("step %d already recorded", index)
	}

	s.records[index] = rec
	return nil
}

// Lookup resolves a context name like "step_3_id" to its recorded value. It
// returns false for names outside the namespace, steps that have not
// completed, and fields the step's response did not include.
func (s *Store) Lookup(name string) (interface{}, bool) {
	m := nameRegex.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}

	index, err := strconv.Atoi(m[1])
	if err != nil || strconv.Itoa(index) != m[1] {
		// Reject non-canonical digit forms such as step_01_id
		return nil, false
	}

	rec, ok := s.records[index]
	if !ok {
		return nil, false
	}

	switch m[2] {
	case "id":
		if !rec.HasID {
			return nil, false
		}
		return rec.ID, true
	case "key":
		if !rec.HasKey {
			return nil, false
		}
		return rec.Key, true
	case "result":
		return rec.Result, true
	}

	return nil, false
}

// Names returns every resolvable context name in sorted step order
func (s *Store) Names() []string {
	indexes := make([]int, 0, len(s.records))
	for index := range s.records {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	var names []string
	for _, index := range indexes {
		rec := s.records[index]
		if rec.HasID {
			names = append(names, fmt.Sprintf("step_%d_id", index))
		}
		if rec.HasKey {
			names = append(names, fmt.Sprintf("step_%d_key", index))
		}
		names = append(names, fmt.Sprintf("step_%d_result", index))
	}

	return names
}

// Len returns the number of recorded steps
func (s *Store) Len() int {
	return len(s.records)
}
