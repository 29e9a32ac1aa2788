// Package tarantoolstore implements the storage ports on Tarantool.
//
// Spaces:
//
//	entries: {entry_id, poll_json, summary_ref}
//	records: {record_id, title, body}
//
// The poll travels as one JSON field so every write is a whole-value
// read-modify-write, never a field-level patch of the poll itself.
package tarantoolstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tarantool/go-tarantool"
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/models"
)

const (
	entriesSpace = "entries"
	recordsSpace = "records"
)

type Store struct {
	db *tarantool.Connection
	l  *zap.Logger
}

func New(db *tarantool.Connection, l *zap.Logger) *Store {
	return &Store{
		db: db,
		l:  l,
	}
}

func (s *Store) GetPoll(entryID string) (models.Poll, error) {
	tuple, err := s.entryTuple(entryID)
	if err != nil {
		return models.Poll{}, err
	}
	pollJSON, ok := tuple[1].(string)
	if !ok || pollJSON == "" {
		s.l.Debug("entry carries no poll", zap.String("entry_id", entryID))
		return models.Poll{}, models.ErrPollNotFound
	}
	var poll models.Poll
	if err := json.Unmarshal([]byte(pollJSON), &poll); err != nil {
		s.l.Debug("failed to unmarshal poll", zap.Error(err))
		return models.Poll{}, fmt.Errorf("storage: failed to unmarshal poll: %w", err)
	}
	return poll, nil
}

func (s *Store) SetPoll(entryID string, poll models.Poll) error {
	pollJSON, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("storage: json marshal error: %w", err)
	}

	existing, err := s.db.Select(entriesSpace, "primary", 0, 1, tarantool.IterEq, []interface{}{entryID})
	if err != nil {
		s.l.Debug("failed to select entry", zap.Error(err))
		return fmt.Errorf("storage: database select error: %w", err)
	}

	if len(existing.Data) == 0 {
		resp, err := s.db.Insert(entriesSpace, []interface{}{entryID, string(pollJSON), ""})
		if err != nil {
			s.l.Debug("failed to insert entry", zap.Error(err))
			return fmt.Errorf("storage: database insert error: %w", err)
		}
		s.l.Debug("tarantool response",
			zap.Uint32("status_code", resp.Code),
			zap.Any("resp", resp.Data),
			zap.String("error", resp.Error))
		return nil
	}

	resp, err := s.db.Update(entriesSpace, "primary",
		[]interface{}{entryID},
		[]interface{}{[]interface{}{"=", 1, string(pollJSON)}})
	if err != nil {
		s.l.Debug("failed to update entry", zap.Error(err))
		return fmt.Errorf("storage: database update error: %w", err)
	}
	s.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))
	return nil
}

func (s *Store) SummaryRef(entryID string) (string, error) {
	tuple, err := s.entryTuple(entryID)
	if err != nil {
		if errors.Is(err, models.ErrPollNotFound) {
			return "", nil
		}
		return "", err
	}
	ref, _ := tuple[2].(string)
	return ref, nil
}

func (s *Store) SetSummaryRef(entryID, recordID string) error {
	resp, err := s.db.Update(entriesSpace, "primary",
		[]interface{}{entryID},
		[]interface{}{[]interface{}{"=", 2, recordID}})
	if err != nil {
		s.l.Debug("failed to update summary ref", zap.Error(err))
		return fmt.Errorf("storage: database update error: %w", err)
	}
	s.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))
	return nil
}

func (s *Store) CreateRecord(title, body string) (string, error) {
	id := uuid.New().String()
	resp, err := s.db.Insert(recordsSpace, []interface{}{id, title, body})
	if err != nil {
		s.l.Debug("failed to insert record", zap.Error(err))
		return "", fmt.Errorf("storage: database insert error: %w", err)
	}
	s.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))
	return id, nil
}

func (s *Store) UpdateRecordBody(recordID, body string) error {
	resp, err := s.db.Update(recordsSpace, "primary",
		[]interface{}{recordID},
		[]interface{}{[]interface{}{"=", 2, body}})
	if err != nil {
		s.l.Debug("failed to update record", zap.Error(err))
		return fmt.Errorf("storage: database update error: %w", err)
	}
	if len(resp.Data) == 0 {
		s.l.Debug("record not found", zap.String("record_id", recordID))
		return models.ErrRecordNotFound
	}
	s.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))
	return nil
}

func (s *Store) entryTuple(entryID string) ([]interface{}, error) {
	resp, err := s.db.Select(entriesSpace, "primary", 0, 1, tarantool.IterEq, []interface{}{entryID})
	if err != nil {
		s.l.Debug("failed to select entry", zap.Error(err))
		return nil, fmt.Errorf("storage: database select error: %w", err)
	}
	s.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))

	if len(resp.Data) == 0 {
		s.l.Debug("entry not found", zap.String("entry_id", entryID))
		return nil, models.ErrPollNotFound
	}
	tuple, ok := resp.Data[0].([]interface{})
	if !ok || len(tuple) < 3 {
		s.l.Debug("unexpected data type", zap.Any("data", resp.Data))
		return nil, fmt.Errorf("storage: unexpected tuple shape for entry %s", entryID)
	}
	return tuple, nil
}
