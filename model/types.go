package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Platform is the raw platform a peer reports for its current session.
type Platform string

const (
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
	PlatformWeb     Platform = "web"
	PlatformUnknown Platform = "unknown"
)

// Identity is a participant record as known by the directory.
type Identity struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	StatusMessage  *string   `json:"status_message,omitempty"`
	ProfilePicture string    `json:"profile_picture"`
	Platform       Platform  `json:"platform"`
}

// Status returns the status message, or "" when none is set.
func (i Identity) Status() string {
	if i.StatusMessage == nil {
		return ""
	}
	return *i.StatusMessage
}

// Clone returns a copy that shares no memory with i.
func (i Identity) Clone() Identity {
	out := i
	if i.StatusMessage != nil {
		s := *i.StatusMessage
		out.StatusMessage = &s
	}
	return out
}

// CloneIdentities deep-copies a slice of identities. A nil slice stays nil.
func CloneIdentities(ids []Identity) []Identity {
	if ids == nil {
		return nil
	}
	out := make([]Identity, len(ids))
	for i, id := range ids {
		out[i] = id.Clone()
	}
	return out
}

// ConversationType distinguishes one-to-one chats from groups.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Chat is a conversation and its membership.
type Chat struct {
	ID           uuid.UUID        `json:"id"`
	Type         ConversationType `json:"type"`
	Name         string           `json:"name,omitempty"` // Groups only
	CreatorID    uuid.UUID        `json:"creator_id"`
	Participants []uuid.UUID      `json:"participants"`
}

// Clone returns a copy with its own participant slice.
func (c Chat) Clone() Chat {
	out := c
	out.Participants = slices.Clone(c.Participants)
	return out
}

// HasParticipant reports whether id is a member of c.
func (c Chat) HasParticipant(id uuid.UUID) bool {
	return slices.Contains(c.Participants, id)
}

// Message represents a chat message.
type Message struct {
	ChatID    uuid.UUID `json:"chat_id"`
	Sender    string    `json:"sender"`    // Username
	SenderID  uuid.UUID `json:"sender_id"` // Identity ID
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"is_system"` // True if it's a system message
}

// EventType represents the type of websocket event.
type EventType string

const (
	EventMessage     EventType = "message"
	EventLogin       EventType = "login"
	EventError       EventType = "error"
	EventSelf        EventType = "self"
	EventSync        EventType = "sync"
	EventIdentity    EventType = "identity"
	EventChat        EventType = "chat"
	EventChatRemoved EventType = "chat_removed"
	EventRename      EventType = "rename"
)

// Event is the wrapper for websocket messages.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// LoginPayload is the payload for login/register requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SendPayload is what a client sends to post into a chat.
type SendPayload struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Content string    `json:"content"`
}

// SyncPayload carries everything a client needs after login.
type SyncPayload struct {
	Self       Identity   `json:"self"`
	Identities []Identity `json:"identities"`
	Chats      []Chat     `json:"chats"`
}

// RenamePayload asks the relay to rename a group chat.
type RenamePayload struct {
	ChatID uuid.UUID `json:"chat_id"`
	Name   string    `json:"name"`
}

// ChatRemovedPayload tells a client it is no longer part of a chat.
type ChatRemovedPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

// DecodePayload converts an event's loosely typed payload into v.
// Payloads arrive as map[string]interface{} after the outer unmarshal, so they
// are re-marshalled and decoded into the concrete type.
func DecodePayload(ev Event, v interface{}) error {
	b, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
