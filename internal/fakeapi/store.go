package fakeapi

import (
	"sort"
	"sync"
)

// record is one stored resource
type record struct {
	scope         string
	Type          string
	ID            string
	Attributes    map[string]any
	Relationships map[string]any
}

type recordKey struct {
	typeName string
	id       string
}

// store holds resources by scope, with a type/id index for includes
type store struct {
	mu      sync.RWMutex
	scopes  map[string]map[string]*record
	byKey   map[recordKey]*record
	ordinal map[*record]int
	next    int
}

func newStore() *store {
	return &store{
		scopes:  make(map[string]map[string]*record),
		byKey:   make(map[recordKey]*record),
		ordinal: make(map[*record]int),
	}
}

func (s *store) put(rec *record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.scopes[rec.scope]
	if !ok {
		items = make(map[string]*record)
		s.scopes[rec.scope] = items
	}
	if prev, ok := items[rec.ID]; ok {
		s.ordinal[rec] = s.ordinal[prev]
		delete(s.ordinal, prev)
	} else {
		s.next++
		s.ordinal[rec] = s.next
	}
	items[rec.ID] = rec
	s.byKey[recordKey{rec.Type, rec.ID}] = rec
}

func (s *store) get(scope, id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.scopes[scope][id]
	return rec, ok
}

func (s *store) lookup(typeName, id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[recordKey{typeName, id}]
	return rec, ok
}

// list returns the resources of a scope in insertion order
func (s *store) list(scope string) []*record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*record, 0, len(s.scopes[scope]))
	for _, rec := range s.scopes[scope] {
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool {
		return s.ordinal[items[i]] < s.ordinal[items[j]]
	})
	return items
}

func (s *store) remove(scope, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.scopes[scope][id]
	if !ok {
		return false
	}
	delete(s.scopes[scope], id)
	delete(s.ordinal, rec)
	if s.byKey[recordKey{rec.Type, rec.ID}] == rec {
		delete(s.byKey, recordKey{rec.Type, rec.ID})
	}
	return true
}
