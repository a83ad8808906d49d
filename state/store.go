// Package state holds the client's application state: every known identity,
// conversation and favorite, plus which conversation is active.
//
// The store is written by event handlers and read by every view. Readers go
// through Read, which holds the read lock only for the duration of the
// callback.
package state

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/puyokura/cmppview/model"
)

var (
	ErrUnknownChat     = errors.New("unknown chat")
	ErrUnknownIdentity = errors.New("unknown identity")
)

// usernameSeparator is placed between names by JoinUsernames.
const usernameSeparator = ", "

// View is the read contract offered to views while the lock is held.
// Implementations must not be retained past the Read callback.
type View interface {
	IsInitialized() bool
	ActiveChat() (model.Chat, bool)
	ChatParticipants(chat model.Chat) []model.Identity
	RemoveSelf(ids []model.Identity) []model.Identity
	OwnIdentity() model.Identity
	IsFavorite(chat model.Chat) bool
	JoinUsernames(ids []model.Identity) string
}

type Store struct {
	identities map[uuid.UUID]model.Identity
	chats      map[uuid.UUID]model.Chat
	order      []uuid.UUID // chat display order
	// members holds each chat's identities as captured at the last sync of
	// that chat. Identity updates do not touch it; only the username is read
	// from here, everything else comes from identities.
	members     map[uuid.UUID][]model.Identity
	own         model.Identity
	favorites   map[uuid.UUID]bool
	active      uuid.UUID
	initialized bool
	mu          sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		identities: make(map[uuid.UUID]model.Identity),
		chats:      make(map[uuid.UUID]model.Chat),
		members:    make(map[uuid.UUID][]model.Identity),
		favorites:  make(map[uuid.UUID]bool),
	}
}

// Read runs fn with the read lock held.
func (s *Store) Read(fn func(View)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(readView{s})
}

// readView exposes the View methods on a store whose lock is already held.
type readView struct {
	s *Store
}

func (v readView) IsInitialized() bool {
	return v.s.initialized
}

func (v readView) ActiveChat() (model.Chat, bool) {
	if v.s.active == uuid.Nil {
		return model.Chat{}, false
	}
	c, ok := v.s.chats[v.s.active]
	if !ok {
		return model.Chat{}, false
	}
	return c.Clone(), true
}

// ChatParticipants returns the chat's members with their current status,
// platform and picture. Usernames stay as captured until the chat is synced
// again.
func (v readView) ChatParticipants(chat model.Chat) []model.Identity {
	members := model.CloneIdentities(v.s.members[chat.ID])
	for i, m := range members {
		live, ok := v.s.identities[m.ID]
		if !ok {
			continue
		}
		live = live.Clone()
		live.Username = m.Username
		members[i] = live
	}
	return members
}

func (v readView) RemoveSelf(ids []model.Identity) []model.Identity {
	out := make([]model.Identity, 0, len(ids))
	for _, id := range ids {
		if id.ID == v.s.own.ID {
			continue
		}
		out = append(out, id.Clone())
	}
	return out
}

func (v readView) OwnIdentity() model.Identity {
	return v.s.own.Clone()
}

func (v readView) IsFavorite(chat model.Chat) bool {
	return v.s.favorites[chat.ID]
}

func (v readView) JoinUsernames(ids []model.Identity) string {
	return JoinUsernames(ids)
}

// JoinUsernames joins the usernames in order. An empty slice yields "".
func JoinUsernames(ids []model.Identity) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.Username)
	}
	return strings.Join(names, usernameSeparator)
}

// Sync replaces the whole state with a fresh copy from the relay and marks
// the store initialized. The active chat survives when it still exists.
func (s *Store) Sync(own model.Identity, identities []model.Identity, chats []model.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.own = own.Clone()
	s.identities = make(map[uuid.UUID]model.Identity, len(identities)+1)
	for _, id := range identities {
		s.identities[id.ID] = id.Clone()
	}
	s.identities[own.ID] = own.Clone()

	s.chats = make(map[uuid.UUID]model.Chat, len(chats))
	s.members = make(map[uuid.UUID][]model.Identity, len(chats))
	s.order = s.order[:0]
	for _, c := range chats {
		s.putChatLocked(c)
	}

	for id := range s.favorites {
		if _, ok := s.chats[id]; !ok {
			delete(s.favorites, id)
		}
	}

	if _, ok := s.chats[s.active]; !ok {
		s.active = uuid.Nil
		if len(s.order) > 0 {
			s.active = s.order[0]
		}
	}
	s.initialized = true
}

// SetOwnIdentity updates the caller's identity.
func (s *Store) SetOwnIdentity(own model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.own = own.Clone()
	s.identities[own.ID] = own.Clone()
}

// UpsertIdentity records a directory update. Chats already synced keep the
// username they captured until the next ResyncChats or Sync.
func (s *Store) UpsertIdentity(id model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[id.ID] = id.Clone()
	if id.ID == s.own.ID {
		s.own = id.Clone()
	}
}

// UpsertChat adds or replaces a chat, capturing its members from the current
// directory.
func (s *Store) UpsertChat(c model.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putChatLocked(c)
	if s.active == uuid.Nil {
		s.active = c.ID
	}
}

func (s *Store) putChatLocked(c model.Chat) {
	if _, ok := s.chats[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.chats[c.ID] = c.Clone()

	members := make([]model.Identity, 0, len(c.Participants))
	for _, p := range c.Participants {
		if id, ok := s.identities[p]; ok {
			members = append(members, id.Clone())
		}
	}
	s.members[c.ID] = members
}

// RemoveChat drops a chat. Removing the active chat selects the next one.
func (s *Store) RemoveChat(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; !ok {
		return ErrUnknownChat
	}
	idx := slices.Index(s.order, id)
	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.chats, id)
	delete(s.members, id)
	delete(s.favorites, id)

	if s.active == id {
		s.active = uuid.Nil
		if len(s.order) > 0 {
			s.active = s.order[min(idx, len(s.order)-1)]
		}
	}
	return nil
}

// ResyncChats re-captures every chat's members from the directory.
func (s *Store) ResyncChats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		s.putChatLocked(s.chats[id])
	}
}

// SetActiveChat selects the chat shown in the conversation view.
// uuid.Nil clears the selection.
func (s *Store) SetActiveChat(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != uuid.Nil {
		if _, ok := s.chats[id]; !ok {
			return ErrUnknownChat
		}
	}
	s.active = id
	return nil
}

// CycleActiveChat moves the selection delta places through the chat list,
// wrapping at both ends.
func (s *Store) CycleActiveChat(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return
	}
	idx := slices.Index(s.order, s.active)
	if idx < 0 {
		s.active = s.order[0]
		return
	}
	n := len(s.order)
	s.active = s.order[((idx+delta)%n+n)%n]
}

// ToggleFavorite flips a chat's favorite flag and returns the new value.
func (s *Store) ToggleFavorite(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return false, ErrUnknownChat
	}
	if s.favorites[id] {
		delete(s.favorites, id)
		return false, nil
	}
	s.favorites[id] = true
	return true, nil
}

// Identity looks up the directory entry for id.
func (s *Store) Identity(id uuid.UUID) (model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.identities[id]
	if !ok {
		return model.Identity{}, ErrUnknownIdentity
	}
	return i.Clone(), nil
}

// Chats returns every chat in display order.
func (s *Store) Chats() []model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chats[id].Clone())
	}
	return out
}
