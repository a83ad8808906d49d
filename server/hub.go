package main

import (
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/puyokura/cmppview/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local tool
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Logged-in identity, nil before /login.
	identity *model.Identity
}

// Hub tracks connected clients and routes events to chat members.
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	directory  *Directory
	config     *Config
	mu         sync.Mutex
}

func NewHub(directory *Directory, config *Config) *Hub {
	return &Hub{
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		directory:  directory,
		config:     config,
	}
}

func (h *Hub) Run() {
	for client := range h.unregister {
		h.mu.Lock()
		h.dropLocked(client)
		h.mu.Unlock()
	}
}

// add starts routing events to client.
func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// dropLocked forgets a client. Must be called with h.mu held.
func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// setIdentity records who a client is logged in as; nil logs it out.
func (h *Hub) setIdentity(c *Client, id *model.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.identity = id
}

// SendTo delivers event to every connected client logged in as one of ids.
func (h *Hub) SendTo(ids []uuid.UUID, event model.Event) {
	bytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.identity == nil || !slices.Contains(ids, client.identity.ID) {
			continue
		}
		select {
		case client.send <- bytes:
		default:
			h.dropLocked(client)
		}
	}
}

// Broadcast delivers event to every logged-in client.
func (h *Hub) Broadcast(event model.Event) {
	h.mu.Lock()
	var ids []uuid.UUID
	for client := range h.clients {
		if client.identity != nil {
			ids = append(ids, client.identity.ID)
		}
	}
	h.mu.Unlock()
	h.SendTo(ids, event)
}

// PublishIdentity tells everyone who shares a chat with id about its new
// state.
func (h *Hub) PublishIdentity(id model.Identity) {
	p, err := h.directory.SyncFor(id.ID)
	if err != nil {
		log.Printf("publish identity %s: %v", id.Username, err)
		return
	}
	audience := []uuid.UUID{id.ID}
	for _, c := range p.Chats {
		audience = append(audience, c.Participants...)
	}
	h.SendTo(audience, model.Event{Type: model.EventIdentity, Payload: id})
}

// PublishChat sends a chat to its members, first sending any identity a
// member may not know yet.
func (h *Hub) PublishChat(c model.Chat) {
	for _, member := range c.Participants {
		p, err := h.directory.SyncFor(member)
		if err != nil {
			continue
		}
		for _, ident := range p.Identities {
			if c.HasParticipant(ident.ID) {
				h.SendTo([]uuid.UUID{member}, model.Event{Type: model.EventIdentity, Payload: ident})
			}
		}
	}
	h.SendTo(c.Participants, model.Event{Type: model.EventChat, Payload: c})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var event model.Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Invalid JSON: %v", err)
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame; the client decodes frames individually.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(event model.Event) {
	switch event.Type {
	case model.EventMessage:
		// Either a raw line (command) or a SendPayload.
		if line, ok := event.Payload.(string); ok {
			c.processLine(line)
			return
		}
		var p model.SendPayload
		if err := model.DecodePayload(event, &p); err != nil {
			c.sendError("malformed message")
			return
		}
		c.postToChat(p)

	case model.EventRename:
		var p model.RenamePayload
		if err := model.DecodePayload(event, &p); err != nil {
			c.sendError("malformed rename")
			return
		}
		c.renameGroup(p.ChatID, p.Name)
	}
}

func (c *Client) processLine(content string) {
	if len(content) > 0 && content[0] == '/' {
		c.handleCommand(content)
		return
	}
	c.sendSystemMessage("Select a chat to talk in, or type /help.")
}

func (c *Client) postToChat(p model.SendPayload) {
	if c.identity == nil {
		c.sendSystemMessage("Please login first using /login <user> <pass> or /register <user> <pass>")
		return
	}
	chat, err := c.hub.directory.Chat(p.ChatID)
	if err != nil || !chat.HasParticipant(c.identity.ID) {
		c.sendError("you are not in that chat")
		return
	}

	msg := model.Message{
		ChatID:    chat.ID,
		Sender:    c.identity.Username,
		SenderID:  c.identity.ID,
		Content:   p.Content,
		Timestamp: time.Now(),
	}
	c.hub.SendTo(chat.Participants, model.Event{Type: model.EventMessage, Payload: msg})
}

func (c *Client) sendEvent(event model.Event) {
	bytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal %s event: %v", event.Type, err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.queueLocked(bytes)
}

// queueLocked hands bytes to the write pump unless the hub already dropped
// the client. Must be called with hub.mu held.
func (c *Client) queueLocked(bytes []byte) {
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- bytes:
	default:
		log.Printf("dropped event, send buffer full")
	}
}

func systemEvent(text string) model.Event {
	return model.Event{
		Type: model.EventMessage,
		Payload: model.Message{
			Sender:    "System",
			Content:   text,
			Timestamp: time.Now(),
			IsSystem:  true,
		},
	}
}

func (c *Client) sendSystemMessage(text string) {
	c.sendEvent(systemEvent(text))
}

func (c *Client) sendError(text string) {
	c.sendEvent(model.Event{Type: model.EventError, Payload: text})
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	hub.add(client)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	client.sendSystemMessage(hub.config.WelcomeMessage)
}

// KickUser disconnects every session of username.
func (h *Hub) KickUser(username string) bool {
	bytes, _ := json.Marshal(systemEvent("You have been kicked by admin."))

	h.mu.Lock()
	defer h.mu.Unlock()

	kicked := false
	for client := range h.clients {
		if client.identity != nil && client.identity.Username == username {
			client.queueLocked(bytes)
			client.conn.Close()
			h.dropLocked(client)
			kicked = true
		}
	}
	return kicked
}

func (h *Hub) BroadcastSystemMessage(msg string) {
	h.Broadcast(systemEvent(msg))
}
