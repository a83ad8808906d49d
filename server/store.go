package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/puyokura/cmppview/model"
)

var (
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errUnknownUser        = errors.New("unknown user")
	errUnknownChat        = errors.New("unknown chat")
	errNotMember          = errors.New("not a member of this chat")
	errNotGroup           = errors.New("only group chats can be renamed")
	errNotOwner           = errors.New("only the group owner can rename it")
)

// Account is a registered user: an identity plus its login secret.
type Account struct {
	Identity     model.Identity `json:"identity"`
	PasswordHash string         `json:"password_hash"`
}

// Directory is the relay's persisted record of accounts and chats.
type Directory struct {
	Accounts map[string]*Account // Key: Username
	Chats    map[uuid.UUID]model.Chat
	mu       sync.RWMutex
	userFile string
	chatFile string
}

func NewDirectory(userFile, chatFile string) *Directory {
	return &Directory{
		Accounts: make(map[string]*Account),
		Chats:    make(map[uuid.UUID]model.Chat),
		userFile: userFile,
		chatFile: chatFile,
	}
}

func (d *Directory) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.userFile); err == nil {
		data, err := os.ReadFile(d.userFile)
		if err != nil {
			return err
		}
		var accounts []*Account
		if err := json.Unmarshal(data, &accounts); err != nil {
			return err
		}
		for _, a := range accounts {
			d.Accounts[a.Identity.Username] = a
		}
	}

	if _, err := os.Stat(d.chatFile); err == nil {
		data, err := os.ReadFile(d.chatFile)
		if err != nil {
			return err
		}
		var chats []model.Chat
		if err := json.Unmarshal(data, &chats); err != nil {
			return err
		}
		for _, c := range chats {
			d.Chats[c.ID] = c
		}
	}
	return nil
}

// saveAccountsLocked writes accounts to disk. Must be called with the lock held.
func (d *Directory) saveAccountsLocked() error {
	accounts := make([]*Account, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		accounts = append(accounts, a)
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.userFile, data, 0600)
}

// saveChatsLocked writes chats to disk. Must be called with the lock held.
func (d *Directory) saveChatsLocked() error {
	chats := make([]model.Chat, 0, len(d.Chats))
	for _, c := range d.Chats {
		chats = append(chats, c)
	}
	data, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.chatFile, data, 0644)
}

func (d *Directory) Register(username, password string, platform model.Platform) (model.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.Accounts[username]; exists {
		return model.Identity{}, errUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Identity{}, err
	}

	acc := &Account{
		Identity: model.Identity{
			ID:       uuid.New(),
			Username: username,
			Platform: platform,
		},
		PasswordHash: string(hash),
	}
	d.Accounts[username] = acc

	if err := d.saveAccountsLocked(); err != nil {
		delete(d.Accounts, username) // Rollback
		return model.Identity{}, err
	}
	return acc.Identity.Clone(), nil
}

func (d *Directory) Authenticate(username, password string) (model.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acc, exists := d.Accounts[username]
	if !exists {
		return model.Identity{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return model.Identity{}, errInvalidCredentials
	}
	return acc.Identity.Clone(), nil
}

// UpdateIdentity applies fn to the account's identity and persists it.
func (d *Directory) UpdateIdentity(id uuid.UUID, fn func(*model.Identity)) (model.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, acc := range d.Accounts {
		if acc.Identity.ID != id {
			continue
		}
		before := acc.Identity.Clone()
		fn(&acc.Identity)
		acc.Identity = acc.Identity.Clone()
		if err := d.saveAccountsLocked(); err != nil {
			acc.Identity = before
			return model.Identity{}, err
		}
		return acc.Identity.Clone(), nil
	}
	return model.Identity{}, errUnknownUser
}

func (d *Directory) Lookup(username string) (model.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.Accounts[username]
	if !ok {
		return model.Identity{}, errUnknownUser
	}
	return acc.Identity.Clone(), nil
}

// OpenDirect returns the direct chat between a and b, creating it if needed.
// The bool is true when a new chat was created.
func (d *Directory) OpenDirect(a, b uuid.UUID) (model.Chat, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.Chats {
		if c.Type != model.ConversationDirect || len(c.Participants) != 2 {
			continue
		}
		if c.HasParticipant(a) && c.HasParticipant(b) {
			return c.Clone(), false, nil
		}
	}

	c := model.Chat{
		ID:           uuid.New(),
		Type:         model.ConversationDirect,
		CreatorID:    a,
		Participants: []uuid.UUID{a, b},
	}
	if a == b {
		c.Participants = []uuid.UUID{a}
	}
	d.Chats[c.ID] = c
	if err := d.saveChatsLocked(); err != nil {
		delete(d.Chats, c.ID)
		return model.Chat{}, false, err
	}
	return c.Clone(), true, nil
}

// CreateGroup creates a group owned by creator with the given members.
func (d *Directory) CreateGroup(creator uuid.UUID, name string, members []uuid.UUID) (model.Chat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	participants := []uuid.UUID{creator}
	for _, m := range members {
		if !slices.Contains(participants, m) {
			participants = append(participants, m)
		}
	}
	c := model.Chat{
		ID:           uuid.New(),
		Type:         model.ConversationGroup,
		Name:         name,
		CreatorID:    creator,
		Participants: participants,
	}
	d.Chats[c.ID] = c
	if err := d.saveChatsLocked(); err != nil {
		delete(d.Chats, c.ID)
		return model.Chat{}, err
	}
	return c.Clone(), nil
}

// RenameGroup sets a group's name. Only the creator may rename.
func (d *Directory) RenameGroup(chatID, by uuid.UUID, name string) (model.Chat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.Chats[chatID]
	if !ok {
		return model.Chat{}, errUnknownChat
	}
	if !c.HasParticipant(by) {
		return model.Chat{}, errNotMember
	}
	if c.Type != model.ConversationGroup {
		return model.Chat{}, errNotGroup
	}
	if c.CreatorID != by {
		return model.Chat{}, errNotOwner
	}
	old := c.Name
	c.Name = name
	d.Chats[chatID] = c
	if err := d.saveChatsLocked(); err != nil {
		c.Name = old
		d.Chats[chatID] = c
		return model.Chat{}, err
	}
	return c.Clone(), nil
}

// LeaveChat removes a member. The chat is kept even when it ends up empty.
func (d *Directory) LeaveChat(chatID, who uuid.UUID) (model.Chat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.Chats[chatID]
	if !ok {
		return model.Chat{}, errUnknownChat
	}
	idx := slices.Index(c.Participants, who)
	if idx < 0 {
		return model.Chat{}, errNotMember
	}
	before := c.Clone()
	c.Participants = slices.Delete(slices.Clone(c.Participants), idx, idx+1)
	d.Chats[chatID] = c
	if err := d.saveChatsLocked(); err != nil {
		d.Chats[chatID] = before
		return model.Chat{}, err
	}
	return c.Clone(), nil
}

// Chat returns a chat by id.
func (d *Directory) Chat(id uuid.UUID) (model.Chat, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.Chats[id]
	if !ok {
		return model.Chat{}, errUnknownChat
	}
	return c.Clone(), nil
}

// SyncFor builds the login payload for id: every chat it belongs to and
// every identity appearing in those chats.
func (d *Directory) SyncFor(id uuid.UUID) (model.SyncPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		self  model.Identity
		found bool
	)
	byID := make(map[uuid.UUID]model.Identity, len(d.Accounts))
	for _, acc := range d.Accounts {
		byID[acc.Identity.ID] = acc.Identity
		if acc.Identity.ID == id {
			self, found = acc.Identity.Clone(), true
		}
	}
	if !found {
		return model.SyncPayload{}, fmt.Errorf("sync %s: %w", id, errUnknownUser)
	}

	p := model.SyncPayload{Self: self}
	seen := map[uuid.UUID]bool{id: true}
	for _, c := range d.Chats {
		if !c.HasParticipant(id) {
			continue
		}
		p.Chats = append(p.Chats, c.Clone())
		for _, member := range c.Participants {
			if seen[member] {
				continue
			}
			seen[member] = true
			if ident, ok := byID[member]; ok {
				p.Identities = append(p.Identities, ident.Clone())
			}
		}
	}
	slices.SortFunc(p.Chats, func(a, b model.Chat) int {
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return p, nil
}
