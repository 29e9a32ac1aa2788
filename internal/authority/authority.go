// Package authority is the single writer for poll state. It runs only on the
// moderator's process, receives intents from the shared channel in arrival
// order and applies them one at a time: read the whole poll, apply the
// transition, write the whole poll back. All other processes observe the
// result through the host's change propagation.
package authority

import (
	"errors"

	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/storage"
	"github.com/votepoll/bot/internal/summary"
)

// EntryAnnotator appends display text to a chat entry, used for the fixed
// closed annotation.
type EntryAnnotator interface {
	Append(entryID, text string) error
}

type Authority struct {
	entries     storage.EntryStore
	records     storage.RecordStore
	annotator   EntryAnnotator
	isModerator bool
	l           *zap.Logger
}

func New(entries storage.EntryStore, records storage.RecordStore, annotator EntryAnnotator, isModerator bool, l *zap.Logger) *Authority {
	return &Authority{
		entries:     entries,
		records:     records,
		annotator:   annotator,
		isModerator: isModerator,
		l:           l,
	}
}

// Apply computes the poll after one intent. The second return is false when
// the intent must be dropped without any state change.
//
// Votes on a closed poll are rejected here. The UI already disables the
// controls; rejecting server-side as well closes the race window between the
// close broadcast and a stale render.
func Apply(poll models.Poll, intent models.Intent) (models.Poll, bool) {
	switch intent.Action {
	case models.ActionVote:
		if poll.Closed {
			return poll, false
		}
		next := poll.Clone()
		for i := range next.Options {
			next.Options[i].Votes = removeID(next.Options[i].Votes, intent.UserID)
			if next.Options[i].Key == intent.OptionKey {
				next.Options[i].Votes = append(next.Options[i].Votes, intent.UserID)
			}
		}
		// An unknown option key leaves the user removed everywhere,
		// which clears their vote.
		return next, true
	case models.ActionEndPoll:
		next := poll.Clone()
		next.Closed = true
		return next, true
	}
	return poll, false
}

func removeID(votes []string, userID string) []string {
	out := votes[:0]
	for _, id := range votes {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// HandleIntent is the bus handler. It runs to completion, persistence
// included, before the next intent is handled; the subscription loop invokes
// it serially. Dropped intents produce no signal back to the sender.
func (a *Authority) HandleIntent(intent models.Intent) {
	if !a.isModerator {
		return
	}
	if intent.Action != models.ActionVote && intent.Action != models.ActionEndPoll {
		a.l.Debug("dropping intent with unknown action", zap.String("action", intent.Action))
		return
	}

	poll, err := a.entries.GetPoll(intent.PollRef)
	if err != nil {
		if errors.Is(err, models.ErrPollNotFound) {
			a.l.Debug("dropping intent for unknown poll", zap.String("poll_ref", intent.PollRef))
		} else {
			a.l.Error("failed to load poll", zap.String("poll_ref", intent.PollRef), zap.Error(err))
		}
		return
	}

	updated, ok := Apply(poll, intent)
	if !ok {
		a.l.Debug("dropping intent",
			zap.String("action", intent.Action),
			zap.String("poll_ref", intent.PollRef),
			zap.Bool("closed", poll.Closed))
		return
	}

	if err := a.entries.SetPoll(intent.PollRef, updated); err != nil {
		a.l.Error("failed to persist poll",
			zap.String("poll_ref", intent.PollRef),
			zap.Error(err))
		return
	}
	a.l.Info("applied intent",
		zap.String("action", intent.Action),
		zap.String("poll_ref", intent.PollRef),
		zap.String("user_id", intent.UserID))

	a.upsertSummary(intent.PollRef, updated)

	if intent.Action == models.ActionEndPoll && !poll.Closed {
		if err := a.annotator.Append(intent.PollRef, summary.ClosedAnnotation); err != nil {
			a.l.Warn("failed to annotate closed poll",
				zap.String("poll_ref", intent.PollRef),
				zap.Error(err))
		}
	}
}

// upsertSummary keeps the durable record in sync with the poll. It is
// best-effort: a failure here never rolls back the committed transition.
func (a *Authority) upsertSummary(entryID string, poll models.Poll) {
	body := summary.Body(summary.Derive(poll))

	ref, err := a.entries.SummaryRef(entryID)
	if err != nil {
		a.l.Warn("failed to look up summary record", zap.String("entry_id", entryID), zap.Error(err))
		return
	}

	if ref == "" {
		recordID, err := a.records.CreateRecord(summary.Title(poll.Question), body)
		if err != nil {
			a.l.Warn("failed to create summary record", zap.String("entry_id", entryID), zap.Error(err))
			return
		}
		if err := a.entries.SetSummaryRef(entryID, recordID); err != nil {
			a.l.Warn("failed to store summary reference",
				zap.String("entry_id", entryID),
				zap.String("record_id", recordID),
				zap.Error(err))
		}
		return
	}

	if err := a.records.UpdateRecordBody(ref, body); err != nil {
		a.l.Warn("failed to update summary record",
			zap.String("record_id", ref),
			zap.Error(err))
	}
}
