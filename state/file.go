package state

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/puyokura/cmppview/model"
)

// cache is the on-disk form of the store, used to paint the last known
// conversations before the relay answers.
type cache struct {
	Self       model.Identity   `json:"self"`
	Identities []model.Identity `json:"identities"`
	Chats      []model.Chat     `json:"chats"`
	Favorites  []uuid.UUID      `json:"favorites"`
	Active     uuid.UUID        `json:"active"`
}

// SaveFile writes the store to path as JSON. Nothing is written before the
// first sync.
func (s *Store) SaveFile(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil
	}

	c := cache{Self: s.own, Active: s.active}
	for _, id := range s.identities {
		c.Identities = append(c.Identities, id)
	}
	for _, id := range s.order {
		c.Chats = append(c.Chats, s.chats[id])
	}
	for id := range s.favorites {
		c.Favorites = append(c.Favorites, id)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadFile restores a store written by SaveFile. A missing file is not an
// error; the store simply stays uninitialized.
func (s *Store) LoadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c cache
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}

	s.Sync(c.Self, c.Identities, c.Chats)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range c.Favorites {
		if _, ok := s.chats[id]; ok {
			s.favorites[id] = true
		}
	}
	if _, ok := s.chats[c.Active]; ok {
		s.active = c.Active
	}
	return nil
}
