package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/puyokura/cmppview/chatdata"
	"github.com/puyokura/cmppview/state"
)

func newClientCommand() *cobra.Command {
	var (
		dotenv string
		host   string
		logTo  string
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Terminal client for a cmpp relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(dotenv)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("log") {
				cfg.LogFile = logTo
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&dotenv, "env", ".env", "dotenv file to load")
	cmd.Flags().StringVar(&host, "host", "", "relay host:port to connect to on start")
	cmd.Flags().StringVar(&logTo, "log", "", "write debug logs to this file")
	return cmd
}

func run(cfg *Config) error {
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "debug")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		// Anything written to the terminal would corrupt the TUI.
		log.SetOutput(io.Discard)
	}

	store := state.NewStore()
	if err := store.LoadFile(cfg.StateFile); err != nil {
		log.Printf("Error loading cached state: %v", err)
	}

	net := NewNetwork()
	defer net.Disconnect()

	projector := &chatdata.Projector{Debug: cfg.Debug}
	m := initialModel(net, store, projector, cfg.StateFile)

	p := tea.NewProgram(m, tea.WithAltScreen())

	if cfg.Host != "" {
		go func() {
			if err := net.Connect(cfg.Host); err != nil {
				p.Send(errMsg(err))
				return
			}
			p.Send(connectionMsg{connected: true})
		}()
	}

	_, err := p.Run()
	return err
}

func main() {
	if err := newClientCommand().Execute(); err != nil {
		fmt.Printf("Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}
