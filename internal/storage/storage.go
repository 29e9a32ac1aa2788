// Package storage defines the persistence ports of the poll subsystem: the
// poll attached to a chat entry and the optional durable summary record.
package storage

import "github.com/votepoll/bot/internal/models"

// EntryStore is the key-value accessor for the poll attached to a chat
// entry. The poll is always written as a whole value; there are no
// field-level patches. The summary cross-reference lives on the entry too,
// set the first time a durable record is created.
type EntryStore interface {
	// GetPoll returns models.ErrPollNotFound when the entry carries no poll.
	GetPoll(entryID string) (models.Poll, error)
	SetPoll(entryID string, poll models.Poll) error

	// SummaryRef returns the durable record id for the entry, or "" when
	// none has been created yet.
	SummaryRef(entryID string) (string, error)
	SetSummaryRef(entryID, recordID string) error
}

// RecordStore persists durable summary records. Updates overwrite the body
// only; title and identity are fixed at creation.
type RecordStore interface {
	CreateRecord(title, body string) (string, error)
	UpdateRecordBody(recordID, body string) error
}
