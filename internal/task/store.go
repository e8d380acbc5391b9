package task

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is the in-memory task table. All access goes through a single
// RWMutex; every status change is one locked update, so a worker claiming a
// task and a caller cancelling it can never both succeed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Save inserts a new record. Ids must be unique.
func (s *MemoryStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("task %s already exists", rec.ID)
	}
	c := rec.Clone()
	s.records[rec.ID] = &c
	return nil
}

// Get returns a copy of the record with the given id.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// Update applies fn to a working copy of the record and stores it only when
// fn succeeds.
func (s *MemoryStore) Update(id string, fn func(rec *Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	working := rec.Clone()
	if err := fn(&working); err != nil {
		return rec.Clone(), err
	}
	s.records[id] = &working
	return working.Clone(), nil
}

// Delete removes a record regardless of its status.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	return true
}

// List returns copies of matching records ordered by creation time.
func (s *MemoryStore) List(match func(rec *Record) bool) []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if match == nil || match(rec) {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// DeleteWhere removes every matching record.
func (s *MemoryStore) DeleteWhere(match func(rec *Record) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if match(rec) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of records in the table.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
