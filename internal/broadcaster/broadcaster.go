// Package broadcaster runs on every participant process. It renders the
// current poll state as interactive controls, captures the viewer's intent
// and publishes it on the shared channel. It never mutates poll state; the
// only way a non-authoritative process sees another user's vote is through a
// PollUpdated notification from the host.
package broadcaster

import (
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/summary"
	"github.com/votepoll/bot/internal/transport"
)

const closedWarning = "This poll is closed."

// Control describes one vote button.
type Control struct {
	Key      string
	Label    string
	Selected bool
	Disabled bool
}

// View is the full UI description for one poll as seen by one viewer.
type View struct {
	Question    string
	Controls    []Control
	Results     summary.Result
	ShowEndPoll bool
}

// Notifier surfaces local-only warnings to the viewer. Nothing is published.
type Notifier interface {
	Warn(userID, message string)
}

// Renderer receives a freshly computed view whenever a watched poll changes.
type Renderer interface {
	RenderPoll(entryID string, view View)
}

type Broadcaster struct {
	bus         transport.Publisher
	notifier    Notifier
	renderer    Renderer
	viewerID    string
	isModerator bool
	l           *zap.Logger
}

func New(bus transport.Publisher, notifier Notifier, renderer Renderer, viewerID string, isModerator bool, l *zap.Logger) *Broadcaster {
	return &Broadcaster{
		bus:         bus,
		notifier:    notifier,
		renderer:    renderer,
		viewerID:    viewerID,
		isModerator: isModerator,
		l:           l,
	}
}

// Render is pure in (poll, viewerID, isModerator): one control per option,
// the viewer's current choice marked selected, everything disabled once the
// poll is closed, and the end-poll control only for the moderator while the
// poll is open.
func Render(poll models.Poll, viewerID string, isModerator bool) View {
	votedKey, _ := poll.VotedOption(viewerID)
	view := View{
		Question:    poll.Question,
		Controls:    make([]Control, len(poll.Options)),
		Results:     summary.Derive(poll),
		ShowEndPoll: isModerator && !poll.Closed,
	}
	for i, opt := range poll.Options {
		view.Controls[i] = Control{
			Key:      opt.Key,
			Label:    opt.Label,
			Selected: opt.Key == votedKey,
			Disabled: poll.Closed,
		}
	}
	return view
}

// VoteClicked handles activation of a vote control. A click on a closed poll
// surfaces a local warning and publishes nothing.
func (b *Broadcaster) VoteClicked(entryID string, poll models.Poll, optionKey string) {
	if poll.Closed {
		b.notifier.Warn(b.viewerID, closedWarning)
		return
	}
	b.l.Debug("publishing vote intent",
		zap.String("entry_id", entryID),
		zap.String("option_key", optionKey))
	b.bus.Publish(models.Intent{
		Action:    models.ActionVote,
		PollRef:   entryID,
		OptionKey: optionKey,
		UserID:    b.viewerID,
	})
}

// EndPollClicked publishes unconditionally; the authority's idempotent close
// covers the race with a stale render.
func (b *Broadcaster) EndPollClicked(entryID string) {
	b.l.Debug("publishing end-poll intent", zap.String("entry_id", entryID))
	b.bus.Publish(models.Intent{
		Action:  models.ActionEndPoll,
		PollRef: entryID,
		UserID:  b.viewerID,
	})
}

// PollUpdated is the observer hook the hosting integration wires to the
// host's change propagation. It re-renders for this process's viewer.
func (b *Broadcaster) PollUpdated(entryID string, poll models.Poll) {
	b.renderer.RenderPoll(entryID, Render(poll, b.viewerID, b.isModerator))
}
