package authority

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/storage/memstore"
	"github.com/votepoll/bot/internal/transport/membus"
)

type capturingAnnotator struct {
	appended []string
}

func (a *capturingAnnotator) Append(entryID, text string) error {
	a.appended = append(a.appended, text)
	return nil
}

type failingRecords struct{}

func (failingRecords) CreateRecord(title, body string) (string, error) {
	return "", errors.New("journal unavailable")
}

func (failingRecords) UpdateRecordBody(recordID, body string) error {
	return errors.New("journal unavailable")
}

func threeWayPoll() models.Poll {
	return models.Poll{
		Question: "pizza or tacos or sushi",
		Options: []models.Option{
			{Key: "opt0", Label: "pizza", Votes: []string{}},
			{Key: "opt1", Label: "tacos", Votes: []string{}},
			{Key: "opt2", Label: "sushi", Votes: []string{}},
		},
	}
}

func vote(ref, key, user string) models.Intent {
	return models.Intent{Action: models.ActionVote, PollRef: ref, OptionKey: key, UserID: user}
}

func endPoll(ref, user string) models.Intent {
	return models.Intent{Action: models.ActionEndPoll, PollRef: ref, UserID: user}
}

func newModeratorAuthority(t *testing.T) (*Authority, *memstore.Store, *capturingAnnotator) {
	t.Helper()
	store := memstore.New()
	annotator := &capturingAnnotator{}
	return New(store, store, annotator, true, zap.NewNop()), store, annotator
}

func TestApplySingleVoteInvariant(t *testing.T) {
	poll := threeWayPoll()
	intents := []models.Intent{
		vote("e", "opt0", "alice"),
		vote("e", "opt1", "bob"),
		vote("e", "opt0", "bob"),
		vote("e", "opt2", "alice"),
		vote("e", "opt2", "alice"),
	}
	for _, in := range intents {
		var ok bool
		poll, ok = Apply(poll, in)
		require.True(t, ok)
		for _, user := range []string{"alice", "bob"} {
			appearances := 0
			for _, opt := range poll.Options {
				for _, id := range opt.Votes {
					if id == user {
						appearances++
					}
				}
			}
			require.LessOrEqual(t, appearances, 1, "user %s", user)
		}
	}
}

func TestApplyVoteSwitching(t *testing.T) {
	poll := threeWayPoll()
	poll, ok := Apply(poll, vote("e", "opt0", "alice"))
	require.True(t, ok)
	poll, ok = Apply(poll, vote("e", "opt1", "alice"))
	require.True(t, ok)

	require.Empty(t, poll.Options[0].Votes)
	require.Equal(t, []string{"alice"}, poll.Options[1].Votes)
	require.Empty(t, poll.Options[2].Votes)
}

func TestApplyVoteIdempotentPerUser(t *testing.T) {
	poll := threeWayPoll()
	poll, _ = Apply(poll, vote("e", "opt1", "alice"))
	again, ok := Apply(poll, vote("e", "opt1", "alice"))
	require.True(t, ok)
	require.Equal(t, poll, again)
}

func TestApplyUnknownOptionKeyClearsVote(t *testing.T) {
	poll := threeWayPoll()
	poll, _ = Apply(poll, vote("e", "opt0", "alice"))
	poll, ok := Apply(poll, vote("e", "nope", "alice"))
	require.True(t, ok)
	for _, opt := range poll.Options {
		require.Empty(t, opt.Votes)
	}
}

func TestApplyEndPollIdempotent(t *testing.T) {
	poll := threeWayPoll()
	once, ok := Apply(poll, endPoll("e", "gm"))
	require.True(t, ok)
	require.True(t, once.Closed)

	twice, ok := Apply(once, endPoll("e", "gm"))
	require.True(t, ok)
	require.Equal(t, once, twice)
}

func TestApplyRejectsVoteOnClosedPoll(t *testing.T) {
	poll := threeWayPoll()
	poll, _ = Apply(poll, endPoll("e", "gm"))

	unchanged, ok := Apply(poll, vote("e", "opt0", "alice"))
	require.False(t, ok)
	require.Equal(t, poll, unchanged)
}

func TestApplyUnknownActionDropped(t *testing.T) {
	poll := threeWayPoll()
	_, ok := Apply(poll, models.Intent{Action: "shuffle", PollRef: "e", UserID: "alice"})
	require.False(t, ok)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	poll := threeWayPoll()
	poll.Options[0].Votes = []string{"alice"}
	before := poll.Clone()

	_, _ = Apply(poll, vote("e", "opt1", "alice"))
	require.Equal(t, before, poll)
}

func TestHandleIntentPersistsVote(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(vote("entry-1", "opt1", "alice"))

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, stored.Options[1].Votes)
}

func TestHandleIntentDropsWhenNotModerator(t *testing.T) {
	store := memstore.New()
	annotator := &capturingAnnotator{}
	auth := New(store, store, annotator, false, zap.NewNop())
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(vote("entry-1", "opt1", "alice"))
	auth.HandleIntent(endPoll("entry-1", "gm"))

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Equal(t, threeWayPoll(), stored)
	require.Zero(t, store.RecordCount())
	require.Empty(t, annotator.appended)
}

func TestHandleIntentDropsUnknownPoll(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)

	auth.HandleIntent(vote("missing", "opt0", "alice"))

	_, err := store.GetPoll("missing")
	require.ErrorIs(t, err, models.ErrPollNotFound)
	require.Zero(t, store.RecordCount())
}

func TestHandleIntentDropsLateVote(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(endPoll("entry-1", "gm"))
	auth.HandleIntent(vote("entry-1", "opt0", "alice"))

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.True(t, stored.Closed)
	for _, opt := range stored.Options {
		require.Empty(t, opt.Votes)
	}
}

func TestHandleIntentCreatesThenUpdatesSummary(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(vote("entry-1", "opt0", "alice"))
	require.Equal(t, 1, store.RecordCount())

	ref, err := store.SummaryRef("entry-1")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	title, body, ok := store.Record(ref)
	require.True(t, ok)
	require.Equal(t, "Poll: pizza or tacos or sushi", title)
	require.Contains(t, body, "- pizza: 1 vote (100%)")

	auth.HandleIntent(vote("entry-1", "opt1", "bob"))
	require.Equal(t, 1, store.RecordCount(), "second transition must update, not create")

	_, body, ok = store.Record(ref)
	require.True(t, ok)
	require.Contains(t, body, "- pizza: 1 vote (50%)")
	require.Contains(t, body, "- tacos: 1 vote (50%)")
	require.Contains(t, body, "Total votes: 2")
}

func TestHandleIntentSummaryFailureKeepsTransition(t *testing.T) {
	store := memstore.New()
	auth := New(store, failingRecords{}, &capturingAnnotator{}, true, zap.NewNop())
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(vote("entry-1", "opt2", "alice"))

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, stored.Options[2].Votes)
}

func TestHandleIntentAnnotatesCloseOnce(t *testing.T) {
	auth, store, annotator := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	auth.HandleIntent(endPoll("entry-1", "gm"))
	auth.HandleIntent(endPoll("entry-1", "gm"))

	require.Len(t, annotator.appended, 1)

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.True(t, stored.Closed)
}

func TestIntentsAppliedInArrivalOrder(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	bus := membus.New()
	require.NoError(t, bus.Subscribe(auth.HandleIntent))

	bus.Hold()
	bus.Publish(vote("entry-1", "opt0", "alice"))
	bus.Publish(vote("entry-1", "opt1", "alice"))
	bus.Release()

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Empty(t, stored.Options[0].Votes)
	require.Equal(t, []string{"alice"}, stored.Options[1].Votes)
}

func TestReorderedDeliveryIsSerializedByArrival(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	bus := membus.New()
	require.NoError(t, bus.Subscribe(auth.HandleIntent))

	// Two senders race: the close arrives before bob's vote even though
	// bob published first. Arrival order wins, so the vote is rejected.
	bus.Hold()
	bus.Publish(vote("entry-1", "opt0", "bob"))
	bus.Publish(endPoll("entry-1", "gm"))
	bus.ReleaseOrder(1, 0)

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Empty(t, stored.Options[0].Votes)
}

func TestDroppedDeliveryLeavesStateUnchanged(t *testing.T) {
	auth, store, _ := newModeratorAuthority(t)
	require.NoError(t, store.SetPoll("entry-1", threeWayPoll()))

	bus := membus.New()
	require.NoError(t, bus.Subscribe(auth.HandleIntent))

	bus.Hold()
	bus.Publish(vote("entry-1", "opt0", "alice"))
	bus.ReleaseOrder() // nothing delivered

	stored, err := store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Empty(t, stored.Options[0].Votes)

	// The user retries by clicking again; the same vote is simply resent.
	bus.Publish(vote("entry-1", "opt0", "alice"))
	stored, err = store.GetPoll("entry-1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, stored.Options[0].Votes)
}
