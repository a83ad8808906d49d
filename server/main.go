package main

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func setupLogging() (*os.File, error) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile("logs/server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return logFile, nil
}

func compressLog() {
	source := "logs/server.log"
	timestamp := time.Now().Format("20060102-150405")
	target := fmt.Sprintf("logs/logs-%s.tar.gz", timestamp)

	file, err := os.Open(source)
	if err != nil {
		log.Printf("Failed to open log for compression: %v", err)
		return
	}
	defer file.Close()

	outFile, err := os.Create(target)
	if err != nil {
		log.Printf("Failed to create compressed log file: %v", err)
		return
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	info, err := file.Stat()
	if err != nil {
		log.Printf("Failed to stat log file: %v", err)
		return
	}

	header, err := tar.FileInfoHeader(info, info.Name())
	if err != nil {
		log.Printf("Failed to create tar header: %v", err)
		return
	}
	header.Name = "server.log"

	if err := tw.WriteHeader(header); err != nil {
		log.Printf("Failed to write tar header: %v", err)
		return
	}

	if _, err := io.Copy(tw, file); err != nil {
		log.Printf("Failed to compress log: %v", err)
		return
	}

	log.Printf("Log compressed to %s", target)
}

func healthHandler(config *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok", "name": config.ServerName}); err != nil {
			log.Printf("health response: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func newServerCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Relay for cmpp chat clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "serverconfig.json", "Path to configuration file")
	return cmd
}

func serve(configFile string) error {
	logFile, err := setupLogging()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	config := NewConfig(configFile)
	if err := config.Load(); err != nil {
		log.Printf("Error loading config: %v", err)
	}

	directory := NewDirectory(config.UserFile, config.ChatFile)
	if err := directory.Load(); err != nil {
		log.Printf("Error loading directory: %v", err)
	}

	hub := NewHub(directory, config)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head><title>%[1]s</title></head>
<body>
    <h1>%[1]s</h1>
    <p>Please use the TUI client to connect.</p>
    <p>Run: <code>./client --host %[2]s:%[3]s</code></p>
</body>
</html>
`, config.ServerName, config.Host, config.Port)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	mux.HandleFunc("/api/health", healthHandler(config))

	serverAddr := fmt.Sprintf("%s:%s", config.Host, config.Port)
	server := &http.Server{Addr: serverAddr, Handler: mux}

	go func() {
		log.Printf("Server started on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		fmt.Println("\nShutting down server...")
		compressLog()
		os.Remove("logs/server.log")
		os.Exit(0)
	}()

	runConsole(os.Stdin, hub, config)
	return nil
}

// runConsole reads operator commands until stdin closes or "stop".
func runConsole(in io.Reader, hub *Hub, config *Config) {
	scanner := bufio.NewScanner(in)
	fmt.Println("Server console ready. Type 'help' for commands.")
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: kick <user>, ban <user>, unban <user>, broadcast <msg>, stop")
		case "stop":
			fmt.Println("Stopping server...")
			return
		case "kick":
			if len(args) != 1 {
				fmt.Println("Usage: kick <user>")
				continue
			}
			if hub.KickUser(args[0]) {
				fmt.Println("User kicked.")
			} else {
				fmt.Println("User not found.")
			}
		case "ban":
			if len(args) != 1 {
				fmt.Println("Usage: ban <user>")
				continue
			}
			if err := config.Ban(args[0]); err != nil {
				fmt.Println("Error banning:", err)
			} else {
				fmt.Println("User banned.")
				hub.KickUser(args[0])
			}
		case "unban":
			if len(args) != 1 {
				fmt.Println("Usage: unban <user>")
				continue
			}
			if err := config.Unban(args[0]); err != nil {
				fmt.Println("Error unbanning:", err)
			} else {
				fmt.Println("User unbanned.")
			}
		case "broadcast":
			if len(args) < 1 {
				fmt.Println("Usage: broadcast <message>")
				continue
			}
			hub.BroadcastSystemMessage("[Admin] " + strings.Join(args, " "))
			fmt.Println("Broadcast sent.")
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func main() {
	if err := newServerCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
