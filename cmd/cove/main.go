package main

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tobyns/CoveChat/internal/client"
	"github.com/tobyns/CoveChat/internal/config"
	"github.com/tobyns/CoveChat/internal/gateway/sqlitegw"
)

func main() {
	cfg := config.Load()

	store, err := sqlitegw.New(cfg)
	if err != nil {
		log.Fatalf("init gateway: %v", err)
	}
	defer store.Close()

	app := client.New(cfg, store, store)
	defer app.Close()

	program := tea.NewProgram(app, tea.WithAltScreen())
	app.AttachSender(program.Send)

	if _, err := program.Run(); err != nil {
		log.Fatalf("client exited: %v", err)
	}
}
