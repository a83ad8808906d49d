// Package chatdata derives the render-ready view of the active conversation
// from the application state.
package chatdata

import (
	"log"
	"sync/atomic"

	"github.com/puyokura/cmppview/model"
	"github.com/puyokura/cmppview/state"
	"github.com/puyokura/cmppview/ui/indicator"
)

// Source is a read-locked handle on the application state.
type Source interface {
	Read(fn func(state.View))
}

// ChatData is everything the conversation view needs for one render. It is
// built fresh on every Get and shares no memory with the store.
type ChatData struct {
	ActiveChat             model.Chat
	MyID                   model.Identity
	OtherParticipants      []model.Identity
	ActiveParticipant      model.Identity
	Subtext                string
	IsFavorite             bool
	IsOwner                bool
	FirstImage             string
	OtherParticipantsNames string
	Platform               indicator.Platform

	version uint64
}

// Version identifies the projection that produced d. No two projections
// from the same Projector share a version.
func (d *ChatData) Version() uint64 {
	return d.version
}

// Changed reports whether d must be rendered in place of prev. Every
// projection is its own version, so this holds for any two snapshots even
// when their fields match.
func (d *ChatData) Changed(prev *ChatData) bool {
	return prev == nil || prev.version != d.version
}

// CanRename reports whether the group name may be edited from this view.
func (d *ChatData) CanRename() bool {
	return d.ActiveChat.Type == model.ConversationGroup && d.IsOwner
}

// Title is the header text: the group name when there is one, otherwise
// the other participants' names, otherwise our own name.
func (d *ChatData) Title() string {
	if d.ActiveChat.Type == model.ConversationGroup && d.ActiveChat.Name != "" {
		return d.ActiveChat.Name
	}
	if d.OtherParticipantsNames != "" {
		return d.OtherParticipantsNames
	}
	return d.ActiveParticipant.Username
}

type Projector struct {
	versions atomic.Uint64
	// Debug logs why Get returned nothing.
	Debug bool
}

// Get projects the active conversation. It returns false while the state is
// not initialized or no chat is active; callers render a placeholder then.
func (p *Projector) Get(src Source) (*ChatData, bool) {
	var data *ChatData
	src.Read(func(s state.View) {
		// The conversation view shouldn't be reachable before the first
		// sync, but check anyway.
		if !s.IsInitialized() {
			p.debugf("chatdata: state not initialized")
			return
		}
		activeChat, ok := s.ActiveChat()
		if !ok {
			p.debugf("chatdata: no active chat")
			return
		}

		// Members were captured when the chat was last synced, so a peer
		// that renamed since then still shows the old name here until the
		// next resync.
		participants := s.ChatParticipants(activeChat)
		otherParticipants := s.RemoveSelf(participants)
		myID := s.OwnIdentity()

		activeParticipant := myID
		if len(otherParticipants) > 0 {
			activeParticipant = otherParticipants[0]
		}

		var subtext string
		if activeChat.Type == model.ConversationDirect {
			subtext = activeParticipant.Status()
		}

		data = &ChatData{
			ActiveChat:             activeChat.Clone(),
			MyID:                   myID.Clone(),
			OtherParticipants:      model.CloneIdentities(otherParticipants),
			ActiveParticipant:      activeParticipant.Clone(),
			Subtext:                subtext,
			IsFavorite:             s.IsFavorite(activeChat),
			IsOwner:                activeChat.CreatorID == myID.ID,
			FirstImage:             activeParticipant.ProfilePicture,
			OtherParticipantsNames: s.JoinUsernames(otherParticipants),
			Platform:               indicator.FromModel(activeParticipant.Platform),
			version:                p.versions.Add(1),
		}
	})
	return data, data != nil
}

func (p *Projector) debugf(format string, args ...interface{}) {
	if p.Debug {
		log.Printf(format, args...)
	}
}
