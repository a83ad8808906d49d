package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/puyokura/cmppview/model"
)

const defaultPort = "8999"

type Network struct {
	conn *websocket.Conn
}

func NewNetwork() *Network {
	return &Network{}
}

func (n *Network) Connect(host string) error {
	if n.conn != nil {
		n.conn.Close()
	}

	if !strings.Contains(host, ":") {
		host = host + ":" + defaultPort
	}

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	n.conn = c
	return nil
}

func (n *Network) Connected() bool {
	return n.conn != nil
}

func (n *Network) Disconnect() {
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}

// WaitForMessage is a tea.Cmd that waits for the next event from the relay.
func (n *Network) WaitForMessage() tea.Msg {
	if n.conn == nil {
		// Not connected; the loop resumes on the next connectionMsg.
		return nil
	}

	_, message, err := n.conn.ReadMessage()
	if err != nil {
		n.Disconnect()
		return disconnectedMsg{err: err}
	}

	var event model.Event
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("invalid event from relay: %v", err)
		return n.WaitForMessage()
	}

	return event
}

// Send posts an event to the relay.
func (n *Network) Send(event model.Event) tea.Cmd {
	return func() tea.Msg {
		if n.conn == nil {
			return errMsg(fmt.Errorf("not connected"))
		}

		bytes, err := json.Marshal(event)
		if err != nil {
			return errMsg(err)
		}

		if err := n.conn.WriteMessage(websocket.TextMessage, bytes); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

// SendCommand sends a slash command or plain text line.
func (n *Network) SendCommand(line string) tea.Cmd {
	return n.Send(model.Event{Type: model.EventMessage, Payload: line})
}

// SendToChat posts content into a chat.
func (n *Network) SendToChat(chat model.Chat, content string) tea.Cmd {
	return n.Send(model.Event{
		Type:    model.EventMessage,
		Payload: model.SendPayload{ChatID: chat.ID, Content: content},
	})
}

// Rename asks the relay to rename a group.
func (n *Network) Rename(chat model.Chat, name string) tea.Cmd {
	return n.Send(model.Event{
		Type:    model.EventRename,
		Payload: model.RenamePayload{ChatID: chat.ID, Name: name},
	})
}

type errMsg error

type disconnectedMsg struct {
	err error
}
