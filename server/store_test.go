package main

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puyokura/cmppview/model"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	dir := t.TempDir()
	return NewDirectory(filepath.Join(dir, "users.json"), filepath.Join(dir, "chats.json"))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	d := newTestDirectory(t)

	id, err := d.Register("alice", "secret", model.PlatformMobile)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id.ID)
	assert.Equal(t, model.PlatformMobile, id.Platform)

	_, err = d.Register("alice", "other", model.PlatformDesktop)
	assert.ErrorIs(t, err, errUserExists)

	got, err := d.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, id.ID, got.ID)

	_, err = d.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = d.Authenticate("nobody", "secret")
	assert.ErrorIs(t, err, errInvalidCredentials)
}

func TestDirectoryPersists(t *testing.T) {
	d := newTestDirectory(t)
	alice, err := d.Register("alice", "pw", model.PlatformDesktop)
	require.NoError(t, err)
	bob, err := d.Register("bob", "pw", model.PlatformWeb)
	require.NoError(t, err)
	group, err := d.CreateGroup(alice.ID, "weekend", []uuid.UUID{bob.ID, alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID, bob.ID}, group.Participants)

	reloaded := NewDirectory(d.userFile, d.chatFile)
	require.NoError(t, reloaded.Load())
	got, err := reloaded.Lookup("bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	c, err := reloaded.Chat(group.ID)
	require.NoError(t, err)
	assert.Equal(t, "weekend", c.Name)
}

func TestOpenDirectIsIdempotent(t *testing.T) {
	d := newTestDirectory(t)
	alice, _ := d.Register("alice", "pw", model.PlatformDesktop)
	bob, _ := d.Register("bob", "pw", model.PlatformDesktop)

	first, created, err := d.OpenDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.ConversationDirect, first.Type)

	second, created, err := d.OpenDirect(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	self, _, err := d.OpenDirect(alice.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID}, self.Participants)
}

func TestRenameGroup(t *testing.T) {
	d := newTestDirectory(t)
	alice, _ := d.Register("alice", "pw", model.PlatformDesktop)
	bob, _ := d.Register("bob", "pw", model.PlatformDesktop)
	carol, _ := d.Register("carol", "pw", model.PlatformDesktop)

	group, err := d.CreateGroup(alice.ID, "old", []uuid.UUID{bob.ID})
	require.NoError(t, err)

	renamed, err := d.RenameGroup(group.ID, alice.ID, "new name")
	require.NoError(t, err)
	assert.Equal(t, "new name", renamed.Name)

	_, err = d.RenameGroup(group.ID, bob.ID, "hijacked")
	assert.ErrorIs(t, err, errNotOwner)
	current, err := d.Chat(group.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", current.Name)

	_, err = d.RenameGroup(group.ID, carol.ID, "nope")
	assert.ErrorIs(t, err, errNotMember)
	_, err = d.RenameGroup(uuid.New(), alice.ID, "nope")
	assert.ErrorIs(t, err, errUnknownChat)

	dm, _, err := d.OpenDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = d.RenameGroup(dm.ID, alice.ID, "nope")
	assert.ErrorIs(t, err, errNotGroup)
}

func TestLeaveChatKeepsEmptyGroup(t *testing.T) {
	d := newTestDirectory(t)
	alice, _ := d.Register("alice", "pw", model.PlatformDesktop)
	group, err := d.CreateGroup(alice.ID, "solo", nil)
	require.NoError(t, err)

	left, err := d.LeaveChat(group.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, left.Participants)

	_, err = d.LeaveChat(group.ID, alice.ID)
	assert.ErrorIs(t, err, errNotMember)
}

func TestSyncFor(t *testing.T) {
	d := newTestDirectory(t)
	alice, _ := d.Register("alice", "pw", model.PlatformDesktop)
	bob, _ := d.Register("bob", "pw", model.PlatformDesktop)
	carol, _ := d.Register("carol", "pw", model.PlatformDesktop)
	dave, _ := d.Register("dave", "pw", model.PlatformDesktop)

	_, _, err := d.OpenDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = d.CreateGroup(alice.ID, "g", []uuid.UUID{bob.ID, carol.ID})
	require.NoError(t, err)
	_, _, err = d.OpenDirect(carol.ID, dave.ID)
	require.NoError(t, err)

	p, err := d.SyncFor(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.Self.ID)
	assert.Len(t, p.Chats, 2)

	var names []string
	for _, id := range p.Identities {
		names = append(names, id.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	_, err = d.SyncFor(uuid.New())
	assert.ErrorIs(t, err, errUnknownUser)
}

func TestUpdateIdentity(t *testing.T) {
	d := newTestDirectory(t)
	alice, _ := d.Register("alice", "pw", model.PlatformDesktop)

	status := "Away"
	got, err := d.UpdateIdentity(alice.ID, func(id *model.Identity) { id.StatusMessage = &status })
	require.NoError(t, err)
	assert.Equal(t, "Away", got.Status())

	status = "changed after the fact"
	again, err := d.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "Away", again.Status())

	_, err = d.UpdateIdentity(uuid.New(), func(*model.Identity) {})
	assert.ErrorIs(t, err, errUnknownUser)
}
