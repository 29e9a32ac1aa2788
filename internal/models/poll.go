package models

import "errors"

var (
	ErrEmptyCommand   = errors.New("no question/options supplied")
	ErrPollNotFound   = errors.New("poll is not found")
	ErrRecordNotFound = errors.New("summary record is not found")
)

// Intent actions understood by the authority. Anything else is dropped.
const (
	ActionVote    = "vote"
	ActionEndPoll = "end-poll"
)

// Poll is the canonical entity attached to a single chat entry. It has no
// identifier of its own; it is always addressed by the entry that carries it.
type Poll struct {
	Question string   `json:"question"`
	Options  []Option `json:"options"`
	Closed   bool     `json:"closed"`
}

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// Votes holds user IDs. Set semantics: a user appears at most once
	// across all options of a poll.
	Votes []string `json:"votes"`
}

// Intent is the transient message published on the shared channel.
// It is never persisted.
type Intent struct {
	Action    string `json:"action"`
	PollRef   string `json:"pollRef"`
	OptionKey string `json:"optionKey,omitempty"`
	UserID    string `json:"userId"`
}

// Clone deep-copies the poll so transitions never alias the stored value.
func (p Poll) Clone() Poll {
	out := Poll{
		Question: p.Question,
		Options:  make([]Option, len(p.Options)),
		Closed:   p.Closed,
	}
	for i, opt := range p.Options {
		votes := make([]string, len(opt.Votes))
		copy(votes, opt.Votes)
		out.Options[i] = Option{Key: opt.Key, Label: opt.Label, Votes: votes}
	}
	return out
}

// VotedOption returns the key of the option whose vote set contains userID.
// At most one option matches by invariant.
func (p Poll) VotedOption(userID string) (string, bool) {
	for _, opt := range p.Options {
		for _, id := range opt.Votes {
			if id == userID {
				return opt.Key, true
			}
		}
	}
	return "", false
}
