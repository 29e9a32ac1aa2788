// Package memstore is an in-memory implementation of the storage ports,
// used in tests and for local runs without Tarantool.
package memstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/votepoll/bot/internal/models"
)

type entry struct {
	poll       models.Poll
	hasPoll    bool
	summaryRef string
}

type record struct {
	title string
	body  string
}

type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	records map[string]*record
}

func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		records: make(map[string]*record),
	}
}

func (s *Store) GetPoll(entryID string) (models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || !e.hasPoll {
		return models.Poll{}, models.ErrPollNotFound
	}
	return e.poll.Clone(), nil
}

func (s *Store) SetPoll(entryID string, poll models.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		e = &entry{}
		s.entries[entryID] = e
	}
	e.poll = poll.Clone()
	e.hasPoll = true
	return nil
}

func (s *Store) SummaryRef(entryID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[entryID]; ok {
		return e.summaryRef, nil
	}
	return "", nil
}

func (s *Store) SetSummaryRef(entryID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		e = &entry{}
		s.entries[entryID] = e
	}
	e.summaryRef = recordID
	return nil
}

func (s *Store) CreateRecord(title, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.records[id] = &record{title: title, body: body}
	return id, nil
}

func (s *Store) UpdateRecordBody(recordID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return models.ErrRecordNotFound
	}
	r.body = body
	return nil
}

// Record returns a stored record's title and body for assertions.
func (s *Store) Record(recordID string) (title, body string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.records[recordID]
	if !found {
		return "", "", false
	}
	return r.title, r.body, true
}

// RecordCount reports how many durable records exist.
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
