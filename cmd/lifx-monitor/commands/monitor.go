package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lifx-monitor/internal/tui"
)

// runMonitor starts the terminal UI on top of a live client.
func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	model := tui.NewModel(s.registry, s.stats, s.client, s.cfg.Discovery.StaleTimeout, s.cfg.Network.Port)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(s.ctx))

	// Stop the UI if the client dies under it.
	go func() {
		select {
		case <-s.client.Done():
			p.Quit()
		case <-s.ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil && s.ctx.Err() == nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	if err := s.client.Err(); err != nil {
		return err
	}
	return nil
}
