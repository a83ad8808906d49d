package state

import (
	"fmt"
	"log"

	"github.com/puyokura/cmppview/model"
)

// Apply folds a relay event into the store. Events that carry no state
// (chat messages, errors) are ignored.
func (s *Store) Apply(ev model.Event) error {
	switch ev.Type {
	case model.EventSync:
		var p model.SyncPayload
		if err := model.DecodePayload(ev, &p); err != nil {
			return fmt.Errorf("decode sync: %w", err)
		}
		s.Sync(p.Self, p.Identities, p.Chats)
		log.Printf("state synced: %d identities, %d chats", len(p.Identities), len(p.Chats))

	case model.EventSelf:
		var id model.Identity
		if err := model.DecodePayload(ev, &id); err != nil {
			return fmt.Errorf("decode self: %w", err)
		}
		s.SetOwnIdentity(id)

	case model.EventIdentity:
		var id model.Identity
		if err := model.DecodePayload(ev, &id); err != nil {
			return fmt.Errorf("decode identity: %w", err)
		}
		s.UpsertIdentity(id)

	case model.EventChat:
		var c model.Chat
		if err := model.DecodePayload(ev, &c); err != nil {
			return fmt.Errorf("decode chat: %w", err)
		}
		s.UpsertChat(c)

	case model.EventChatRemoved:
		var p model.ChatRemovedPayload
		if err := model.DecodePayload(ev, &p); err != nil {
			return fmt.Errorf("decode chat removal: %w", err)
		}
		if err := s.RemoveChat(p.ChatID); err != nil {
			return fmt.Errorf("remove chat %s: %w", p.ChatID, err)
		}
	}
	return nil
}
