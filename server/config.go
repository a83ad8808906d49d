package main

import (
	"encoding/json"
	"os"
	"slices"
	"sync"
)

type Config struct {
	Port           string   `json:"port"`
	Host           string   `json:"host"`
	ServerName     string   `json:"server_name"`
	WelcomeMessage string   `json:"welcome_message"`
	UserFile       string   `json:"user_file"`
	ChatFile       string   `json:"chat_file"`
	BannedUsers    []string `json:"banned_users"`
	mu             sync.RWMutex
	configFile     string
}

func NewConfig(filename string) *Config {
	if filename == "" {
		filename = "server_config.json"
	}
	return &Config{
		configFile: filename,
		// Defaults
		Port:           "8999",
		Host:           "localhost",
		ServerName:     "CMPP Relay",
		WelcomeMessage: "Welcome! Type /help for commands.",
		UserFile:       "users.json",
		ChatFile:       "chats.json",
		BannedUsers:    []string{},
	}
}

func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.configFile); os.IsNotExist(err) {
		// Create default config if not exists
		return c.saveInternal()
	}

	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	// Write back so newly added fields show up with their defaults.
	return c.saveInternal()
}

func (c *Config) saveInternal() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) IsBanned(username string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.BannedUsers, username)
}

func (c *Config) Ban(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.BannedUsers, username) {
		return nil
	}
	c.BannedUsers = append(c.BannedUsers, username)
	return c.saveInternal()
}

func (c *Config) Unban(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BannedUsers = slices.DeleteFunc(c.BannedUsers, func(u string) bool { return u == username })
	return c.saveInternal()
}
