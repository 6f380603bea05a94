// cmd/introdeck/main.go
//
// This is the entry point for the introdeck client.
//
// Flow:
// 1. Resolve the config directory and seed defaults on first run
// 2. Load the config (flags and env override the server address)
// 3. Build the API client and the session logbook
// 4. Launch the TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"introdeck/internal/api"
	"introdeck/internal/config"
	"introdeck/internal/logbook"
	"introdeck/internal/tui"
)

func main() {
	serverFlag := flag.String("server", "", "server base URL (overrides config and INTRODECK_SERVER)")
	flag.Parse()

	dir, err := config.ResolveDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config directory: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitConfigDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s: %v\n", dir, err)
		os.Exit(1)
	}

	cfg, err := config.New(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	baseURL := cfg.ServerBaseURL()
	if *serverFlag != "" {
		baseURL = *serverFlag
	}

	client, err := api.New(baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with server address %q: %v\n", baseURL, err)
		os.Exit(1)
	}

	book, err := logbook.New(filepath.Join(cfg.LogsDir(), "introdeck.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening logbook: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		tui.NewApp(cfg, client, book),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
