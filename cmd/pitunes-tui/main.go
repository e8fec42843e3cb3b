package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"pitunes/internal/tui"
)

func main() {
	server := flag.String("server", "http://localhost:8443", "piTunes server base URL")
	flag.Parse()

	// Credentials come from the environment so they stay out of shell history.
	_ = godotenv.Load()
	username := os.Getenv("PITUNES_USERNAME")
	password := os.Getenv("PITUNES_PASSWORD")

	client := tui.NewClient(*server, username, password)
	program := tea.NewProgram(tui.New(client), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pitunes-tui: %v\n", err)
		os.Exit(1)
	}
}
