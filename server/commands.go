package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/puyokura/cmppview/chatdata"
	"github.com/puyokura/cmppview/model"
)

func (c *Client) handleCommand(cmdLine string) {
	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "/register":
		c.handleRegister(args)
		return
	case "/login":
		c.handleLogin(args)
		return
	case "/logout":
		c.handleLogout()
		return
	case "/help":
		c.handleHelp()
		return
	}

	if c.identity == nil {
		c.sendSystemMessage("Please login first using /login <user> <pass> or /register <user> <pass>")
		return
	}

	switch cmd {
	case "/status":
		c.handleStatus(args)
	case "/platform":
		c.handlePlatform(args)
	case "/avatar":
		c.handleAvatar(args)
	case "/dm":
		c.handleDM(args)
	case "/group":
		c.handleGroup(args)
	case "/rename":
		c.handleRename(args)
	case "/leave":
		c.handleLeave(args)
	default:
		c.sendSystemMessage("Unknown command: " + cmd)
	}
}

func parsePlatform(s string) model.Platform {
	switch p := model.Platform(strings.ToLower(s)); p {
	case model.PlatformDesktop, model.PlatformMobile, model.PlatformWeb:
		return p
	default:
		return model.PlatformUnknown
	}
}

func (c *Client) handleRegister(args []string) {
	if len(args) < 2 || len(args) > 3 {
		c.sendSystemMessage("Usage: /register <username> <password> [desktop|mobile|web]")
		return
	}
	platform := model.PlatformDesktop
	if len(args) == 3 {
		platform = parsePlatform(args[2])
	}

	id, err := c.hub.directory.Register(args[0], args[1], platform)
	if err != nil {
		c.sendSystemMessage("Registration failed: " + err.Error())
		return
	}

	c.login(id)
	c.sendSystemMessage(fmt.Sprintf("Registered and logged in as %s", id.Username))
	log.Printf("User registered: %s (%s)", id.Username, id.ID)
}

func (c *Client) handleLogin(args []string) {
	if len(args) != 2 {
		c.sendSystemMessage("Usage: /login <username> <password>")
		return
	}
	username := args[0]
	if c.hub.config.IsBanned(username) {
		c.sendSystemMessage("Login failed: banned")
		return
	}

	id, err := c.hub.directory.Authenticate(username, args[1])
	if err != nil {
		c.sendSystemMessage("Login failed: " + err.Error())
		log.Printf("Login failed for %s: %v", username, err)
		return
	}

	c.login(id)
	c.sendSystemMessage(fmt.Sprintf("Logged in as %s", id.Username))
	log.Printf("User logged in: %s (%s)", id.Username, id.ID)
}

// login binds the client to id and sends the full state.
func (c *Client) login(id model.Identity) {
	c.hub.setIdentity(c, &id)

	p, err := c.hub.directory.SyncFor(id.ID)
	if err != nil {
		log.Printf("sync for %s failed: %v", id.Username, err)
		c.sendError("sync failed")
		return
	}
	c.sendEvent(model.Event{Type: model.EventSync, Payload: p})
}

func (c *Client) handleLogout() {
	if c.identity != nil {
		log.Printf("User logged out: %s", c.identity.Username)
	}
	c.hub.setIdentity(c, nil)
	c.sendSystemMessage("Logged out.")
}

func (c *Client) handleHelp() {
	help := `Available commands:
/register <user> <pass> [platform] - Register new account
/login <user> <pass> - Login
/logout - Logout
/status [message] - Set or clear your status
/platform <desktop|mobile|web> - Set your platform
/avatar <ref> - Set your profile picture
/dm <user> - Open a direct chat
/group <name> <user>... - Create a group chat (use _ for spaces in the name)
/rename <chat-id> <name> - Rename a group chat
/leave <chat-id> - Leave a chat
/help - Show this help

Keys: ctrl+n/ctrl+p switch chat, ctrl+f favorite, ctrl+r rename group (owner only), ctrl+l refresh names`
	c.sendSystemMessage(help)
}

func (c *Client) updateIdentity(fn func(*model.Identity)) {
	id, err := c.hub.directory.UpdateIdentity(c.identity.ID, fn)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.setIdentity(c, &id)
	c.hub.PublishIdentity(id)
}

func (c *Client) handleStatus(args []string) {
	if len(args) == 0 {
		c.updateIdentity(func(id *model.Identity) { id.StatusMessage = nil })
		return
	}
	status := strings.Join(args, " ")
	c.updateIdentity(func(id *model.Identity) { id.StatusMessage = &status })
}

func (c *Client) handlePlatform(args []string) {
	if len(args) != 1 {
		c.sendSystemMessage("Usage: /platform <desktop|mobile|web>")
		return
	}
	platform := parsePlatform(args[0])
	c.updateIdentity(func(id *model.Identity) { id.Platform = platform })
}

func (c *Client) handleAvatar(args []string) {
	if len(args) != 1 {
		c.sendSystemMessage("Usage: /avatar <ref>")
		return
	}
	c.updateIdentity(func(id *model.Identity) { id.ProfilePicture = args[0] })
}

func (c *Client) handleDM(args []string) {
	if len(args) != 1 {
		c.sendSystemMessage("Usage: /dm <user>")
		return
	}
	peer, err := c.hub.directory.Lookup(args[0])
	if err != nil {
		c.sendSystemMessage("User not found.")
		return
	}
	chat, created, err := c.hub.directory.OpenDirect(c.identity.ID, peer.ID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if created {
		log.Printf("Direct chat %s opened by %s", chat.ID, c.identity.Username)
	}
	c.hub.PublishChat(chat)
}

func (c *Client) handleGroup(args []string) {
	if len(args) < 2 {
		c.sendSystemMessage("Usage: /group <name> <user>...")
		return
	}
	name := strings.ReplaceAll(args[0], "_", " ")
	if errs := chatdata.GroupNameValidation().Validate(name); len(errs) > 0 {
		c.sendSystemMessage("Invalid group name: " + strings.Join(errs, " "))
		return
	}

	var members []uuid.UUID
	for _, username := range args[1:] {
		peer, err := c.hub.directory.Lookup(username)
		if err != nil {
			c.sendSystemMessage("User not found: " + username)
			return
		}
		members = append(members, peer.ID)
	}

	chat, err := c.hub.directory.CreateGroup(c.identity.ID, name, members)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	log.Printf("Group %q (%s) created by %s", chat.Name, chat.ID, c.identity.Username)
	c.hub.PublishChat(chat)
}

func (c *Client) handleRename(args []string) {
	if len(args) < 2 {
		c.sendSystemMessage("Usage: /rename <chat-id> <name>")
		return
	}
	chatID, err := uuid.Parse(args[0])
	if err != nil {
		c.sendSystemMessage("Invalid chat id.")
		return
	}
	c.renameGroup(chatID, strings.Join(args[1:], " "))
}

func (c *Client) renameGroup(chatID uuid.UUID, name string) {
	if c.identity == nil {
		c.sendSystemMessage("Please login first using /login <user> <pass> or /register <user> <pass>")
		return
	}
	if errs := chatdata.GroupNameValidation().Validate(name); len(errs) > 0 {
		c.sendError("Invalid group name: " + strings.Join(errs, " "))
		return
	}
	chat, err := c.hub.directory.RenameGroup(chatID, c.identity.ID, name)
	if err != nil {
		c.sendError("Rename failed: " + err.Error())
		return
	}
	c.hub.PublishChat(chat)
}

func (c *Client) handleLeave(args []string) {
	if len(args) != 1 {
		c.sendSystemMessage("Usage: /leave <chat-id>")
		return
	}
	chatID, err := uuid.Parse(args[0])
	if err != nil {
		c.sendSystemMessage("Invalid chat id.")
		return
	}
	chat, err := c.hub.directory.LeaveChat(chatID, c.identity.ID)
	if err != nil {
		c.sendError("Leave failed: " + err.Error())
		return
	}
	c.sendEvent(model.Event{Type: model.EventChatRemoved, Payload: model.ChatRemovedPayload{ChatID: chat.ID}})
	c.hub.PublishChat(chat)
}
