// Package api is the Mattermost integration layer. It turns websocket post
// events into poll commands and control activations, posts and updates the
// chat entries that carry polls, and surfaces local-only warnings as
// ephemeral posts.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/broadcaster"
	"github.com/votepoll/bot/internal/factory"
	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/storage"
	"github.com/votepoll/bot/internal/summary"
)

const (
	Command      = "/vote"
	UsageMessage = "Usage: /vote <question or options separated by 'or'>"

	// PollPropKey is the module-scoped namespace key under which the poll
	// is attached to its post.
	PollPropKey = "vote-poll"
)

type ChatHandler struct {
	client    *model.Client4
	channelID string
	entries   storage.EntryStore
	bc        *broadcaster.Broadcaster
	l         *zap.Logger
}

func New(client *model.Client4, channelID string, entries storage.EntryStore, l *zap.Logger) *ChatHandler {
	return &ChatHandler{
		client:    client,
		channelID: channelID,
		entries:   entries,
		l:         l,
	}
}

// SetBroadcaster wires the broadcaster in after construction; the two sides
// reference each other (the broadcaster renders through this handler).
func (h *ChatHandler) SetBroadcaster(bc *broadcaster.Broadcaster) {
	h.bc = bc
}

// HandleMessage dispatches one posted message. Only /vote commands are
// acted on; everything else is ignored.
func HandleMessage(h *ChatHandler, event *model.WebSocketEvent, botID string) {
	post := &model.Post{}
	raw, ok := event.GetData()["post"].(string)
	if !ok {
		h.l.Error("event carries no post payload")
		return
	}
	if err := json.Unmarshal([]byte(raw), post); err != nil {
		h.l.Error("error unmarshalling post", zap.Error(err))
		return
	}
	if post.UserId == botID {
		return
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(post.Message)), Command) {
		return
	}
	h.l.Info("new poll command",
		zap.String("user_id", post.UserId),
		zap.String("channel_id", post.ChannelId),
		zap.String("message", post.Message))
	h.CreatePollEntry(post.ChannelId, post.UserId, strings.TrimSpace(post.Message)[len(Command):])
}

// CreatePollEntry parses the command text and creates the chat entry with
// the poll attached. A validation failure surfaces the usage warning to the
// invoking user only and creates nothing.
func (h *ChatHandler) CreatePollEntry(channelID, userID, rawText string) {
	poll, err := factory.Parse(rawText)
	if err != nil {
		if errors.Is(err, models.ErrEmptyCommand) {
			h.Warn(userID, UsageMessage)
			return
		}
		h.l.Error("failed to parse poll command", zap.Error(err))
		return
	}

	post := &model.Post{
		ChannelId: channelID,
		Message:   entryHeader(poll.Question),
	}
	post.AddProp(PollPropKey, poll)

	created, _, err := h.client.CreatePost(post)
	if err != nil {
		h.l.Error("failed to create poll entry", zap.Error(err))
		return
	}
	if err := h.entries.SetPoll(created.Id, poll); err != nil {
		h.l.Error("failed to persist initial poll",
			zap.String("entry_id", created.Id),
			zap.Error(err))
		return
	}
	h.l.Info("created poll",
		zap.String("entry_id", created.Id),
		zap.String("question", poll.Question))
}

// HandleEntryChanged is wired to the host's change propagation (post-edited
// events). It reloads the poll and triggers a local re-render.
func (h *ChatHandler) HandleEntryChanged(entryID string) {
	poll, err := h.entries.GetPoll(entryID)
	if err != nil {
		if !errors.Is(err, models.ErrPollNotFound) {
			h.l.Error("failed to load changed poll", zap.String("entry_id", entryID), zap.Error(err))
		}
		return
	}
	h.bc.PollUpdated(entryID, poll)
}

// Warn sends a local-only ephemeral warning to one user.
func (h *ChatHandler) Warn(userID, message string) {
	post := &model.PostEphemeral{
		UserID: userID,
		Post: &model.Post{
			ChannelId: h.channelID,
			Message:   message,
		},
	}
	_, _, _ = h.client.CreatePostEphemeral(post)
}

// RenderPoll rewrites the entry's display body from the view: the static
// header plus the current result lines.
func (h *ChatHandler) RenderPoll(entryID string, view broadcaster.View) {
	post, _, err := h.client.GetPost(entryID, "")
	if err != nil {
		h.l.Warn("failed to load poll entry", zap.String("entry_id", entryID), zap.Error(err))
		return
	}

	var b strings.Builder
	b.WriteString(entryHeader(view.Question))
	b.WriteString("\n")
	for _, opt := range view.Results.Options {
		b.WriteString("- " + summary.Line(opt) + "\n")
	}
	b.WriteString(fmt.Sprintf("\nTotal votes: %d", view.Results.Total))
	if view.Results.Closed {
		b.WriteString("\n\n" + summary.ClosedAnnotation)
	}

	post.Message = b.String()
	if _, _, err := h.client.UpdatePost(entryID, post); err != nil {
		h.l.Warn("failed to update poll entry", zap.String("entry_id", entryID), zap.Error(err))
	}
}

// Append adds display text to the end of an entry's body.
func (h *ChatHandler) Append(entryID, text string) error {
	post, _, err := h.client.GetPost(entryID, "")
	if err != nil {
		return fmt.Errorf("api: failed to load entry: %w", err)
	}
	post.Message += "\n\n" + text
	if _, _, err := h.client.UpdatePost(entryID, post); err != nil {
		return fmt.Errorf("api: failed to update entry: %w", err)
	}
	return nil
}

func entryHeader(question string) string {
	return fmt.Sprintf("**Vote:** %s\n_Click a button below to vote._\n", html.EscapeString(question))
}
