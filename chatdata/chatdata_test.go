package chatdata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puyokura/cmppview/model"
	"github.com/puyokura/cmppview/state"
	"github.com/puyokura/cmppview/ui/indicator"
)

func strPtr(s string) *string { return &s }

func newIdentity(name string, platform model.Platform) model.Identity {
	return model.Identity{
		ID:             uuid.New(),
		Username:       name,
		ProfilePicture: name + ".png",
		Platform:       platform,
	}
}

func newChat(kind model.ConversationType, members ...model.Identity) model.Chat {
	c := model.Chat{ID: uuid.New(), Type: kind}
	for _, m := range members {
		c.Participants = append(c.Participants, m.ID)
	}
	return c
}

// fixture builds a synced store with chat active.
func fixture(t *testing.T, me model.Identity, others []model.Identity, chat model.Chat) *state.Store {
	t.Helper()
	s := state.NewStore()
	s.Sync(me, others, []model.Chat{chat})
	require.NoError(t, s.SetActiveChat(chat.ID))
	return s
}

// fakeSource serves a fixed View without a store behind it.
type fakeSource struct {
	view state.View
}

func (f fakeSource) Read(fn func(state.View)) { fn(f.view) }

type fakeView struct {
	state.View
	initialized bool
	active      *model.Chat
}

func (v fakeView) IsInitialized() bool { return v.initialized }

func (v fakeView) ActiveChat() (model.Chat, bool) {
	if v.active == nil {
		return model.Chat{}, false
	}
	return *v.active, true
}

func TestGetNotInitialized(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformMobile)
	c := newChat(model.ConversationDirect, me, bob)

	var p Projector
	data, ok := p.Get(fakeSource{fakeView{initialized: false, active: &c}})
	assert.False(t, ok)
	assert.Nil(t, data)

	data, ok = p.Get(state.NewStore())
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestGetNoActiveChat(t *testing.T) {
	var p Projector
	data, ok := p.Get(fakeSource{fakeView{initialized: true}})
	assert.False(t, ok)
	assert.Nil(t, data)

	me := newIdentity("me", model.PlatformDesktop)
	s := state.NewStore()
	s.Sync(me, nil, nil)
	_, ok = p.Get(s)
	assert.False(t, ok)
}

func TestGetDirectChat(t *testing.T) {
	me := newIdentity("me", model.PlatformDesktop)
	bob := newIdentity("bob", model.PlatformMobile)
	bob.StatusMessage = strPtr("Away")
	c := newChat(model.ConversationDirect, me, bob)
	s := fixture(t, me, []model.Identity{bob}, c)
	_, err := s.ToggleFavorite(c.ID)
	require.NoError(t, err)

	var p Projector
	data, ok := p.Get(s)
	require.True(t, ok)

	assert.Equal(t, c.ID, data.ActiveChat.ID)
	assert.Equal(t, me.ID, data.MyID.ID)
	assert.Equal(t, bob.ID, data.ActiveParticipant.ID)
	require.Len(t, data.OtherParticipants, 1)
	assert.Equal(t, bob.ID, data.OtherParticipants[0].ID)
	assert.Equal(t, "Away", data.Subtext)
	assert.True(t, data.IsFavorite)
	assert.Equal(t, "bob.png", data.FirstImage)
	assert.Equal(t, "bob", data.OtherParticipantsNames)
	assert.Equal(t, indicator.Mobile, data.Platform)
	assert.Equal(t, "bob", data.Title())
}

func TestGetDirectChatWithoutStatus(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformWeb)
	c := newChat(model.ConversationDirect, me, bob)

	var p Projector
	data, ok := p.Get(fixture(t, me, []model.Identity{bob}, c))
	require.True(t, ok)
	assert.Equal(t, "", data.Subtext)
	assert.False(t, data.IsFavorite)
	assert.Equal(t, indicator.Web, data.Platform)
}

func TestGetGroupChat(t *testing.T) {
	me := newIdentity("me", model.PlatformDesktop)
	bob := newIdentity("bob", model.PlatformMobile)
	bob.StatusMessage = strPtr("Away")
	carol := newIdentity("carol", "")
	c := newChat(model.ConversationGroup, bob, me, carol)
	c.Name = "hiking"

	var p Projector
	data, ok := p.Get(fixture(t, me, []model.Identity{bob, carol}, c))
	require.True(t, ok)

	assert.Equal(t, "", data.Subtext)
	require.Len(t, data.OtherParticipants, 2)
	assert.Equal(t, "bob", data.OtherParticipants[0].Username)
	assert.Equal(t, "carol", data.OtherParticipants[1].Username)
	assert.Equal(t, "bob, carol", data.OtherParticipantsNames)
	assert.Equal(t, bob.ID, data.ActiveParticipant.ID)
	assert.Equal(t, "hiking", data.Title())
	for _, other := range data.OtherParticipants {
		assert.NotEqual(t, me.ID, other.ID)
	}
}

func TestGetSelfChat(t *testing.T) {
	me := newIdentity("me", "")
	me.StatusMessage = strPtr("focusing")
	c := newChat(model.ConversationDirect, me)

	var p Projector
	data, ok := p.Get(fixture(t, me, nil, c))
	require.True(t, ok)

	assert.Empty(t, data.OtherParticipants)
	assert.Equal(t, me.ID, data.ActiveParticipant.ID)
	assert.Equal(t, "", data.OtherParticipantsNames)
	assert.Equal(t, "focusing", data.Subtext)
	assert.Equal(t, "me.png", data.FirstImage)
	assert.Equal(t, indicator.Unknown, data.Platform)
	assert.Equal(t, "me", data.Title())
}

func TestGetEmptyGroup(t *testing.T) {
	me := newIdentity("me", model.PlatformDesktop)
	c := newChat(model.ConversationGroup)

	var p Projector
	data, ok := p.Get(fixture(t, me, nil, c))
	require.True(t, ok)
	assert.Empty(t, data.OtherParticipants)
	assert.Equal(t, me.ID, data.ActiveParticipant.ID)
	assert.Equal(t, "", data.Subtext)
}

func TestSnapshotsAlwaysChange(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformDesktop)
	s := fixture(t, me, []model.Identity{bob}, newChat(model.ConversationDirect, me, bob))

	var p Projector
	first, ok := p.Get(s)
	require.True(t, ok)
	second, ok := p.Get(s)
	require.True(t, ok)

	assert.Equal(t, first.OtherParticipantsNames, second.OtherParticipantsNames)
	assert.Greater(t, second.Version(), first.Version())
	assert.True(t, second.Changed(first))
	assert.True(t, first.Changed(second))
	assert.True(t, first.Changed(nil))
	assert.False(t, first.Changed(first))
}

func TestSnapshotIsDetachedFromStore(t *testing.T) {
	me := newIdentity("me", model.PlatformDesktop)
	bob := newIdentity("bob", model.PlatformDesktop)
	bob.StatusMessage = strPtr("Away")
	c := newChat(model.ConversationDirect, me, bob)
	s := fixture(t, me, []model.Identity{bob}, c)

	var p Projector
	data, ok := p.Get(s)
	require.True(t, ok)

	*data.ActiveParticipant.StatusMessage = "mutated"
	data.ActiveChat.Participants[0] = uuid.Nil
	data.OtherParticipants[0].Username = "mutated"

	again, ok := p.Get(s)
	require.True(t, ok)
	assert.Equal(t, "Away", again.Subtext)
	assert.Equal(t, me.ID, again.ActiveChat.Participants[0])
	assert.Equal(t, "bob", again.OtherParticipants[0].Username)
}

func TestGetKeepsCapturedNamesUntilResync(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformDesktop)
	c := newChat(model.ConversationDirect, me, bob)
	s := fixture(t, me, []model.Identity{bob}, c)

	renamed := bob
	renamed.Username = "robert"
	s.UpsertIdentity(renamed)

	var p Projector
	data, _ := p.Get(s)
	assert.Equal(t, "bob", data.OtherParticipantsNames)

	s.ResyncChats()
	data, _ = p.Get(s)
	assert.Equal(t, "robert", data.OtherParticipantsNames)
}

func TestGetFollowsStatusChangesAfterSync(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformDesktop)
	c := newChat(model.ConversationDirect, me, bob)
	s := fixture(t, me, []model.Identity{bob}, c)

	updated := bob
	updated.StatusMessage = strPtr("Away")
	updated.Platform = model.PlatformMobile
	updated.ProfilePicture = "new.png"
	s.UpsertIdentity(updated)

	var p Projector
	data, ok := p.Get(s)
	require.True(t, ok)
	assert.Equal(t, "Away", data.Subtext)
	assert.Equal(t, indicator.Mobile, data.Platform)
	assert.Equal(t, "new.png", data.FirstImage)
	assert.Equal(t, "bob", data.OtherParticipantsNames)
}

func TestGetGroupOwnership(t *testing.T) {
	me, bob := newIdentity("me", model.PlatformDesktop), newIdentity("bob", model.PlatformDesktop)

	mine := newChat(model.ConversationGroup, me, bob)
	mine.CreatorID = me.ID
	var p Projector
	data, ok := p.Get(fixture(t, me, []model.Identity{bob}, mine))
	require.True(t, ok)
	assert.True(t, data.IsOwner)
	assert.True(t, data.CanRename())

	theirs := newChat(model.ConversationGroup, me, bob)
	theirs.CreatorID = bob.ID
	data, ok = p.Get(fixture(t, me, []model.Identity{bob}, theirs))
	require.True(t, ok)
	assert.False(t, data.IsOwner)
	assert.False(t, data.CanRename())

	dm := newChat(model.ConversationDirect, me, bob)
	dm.CreatorID = me.ID
	data, ok = p.Get(fixture(t, me, []model.Identity{bob}, dm))
	require.True(t, ok)
	assert.True(t, data.IsOwner)
	assert.False(t, data.CanRename())
}
