package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"notebook/internal/client"
)

// Run starts the terminal viewer against an already reachable daemon and
// blocks until the user quits.
func Run(c *client.Client) error {
	program := tea.NewProgram(New(c), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
