package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/songquiz/internal/service"
	"github.com/audiolibrelab/songquiz/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open the interactive terminal quiz",
	Long: `Open the quiz in the terminal. Pick a category, play a clip of the chosen
length, and reveal the answer once the players have guessed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		if msg := svc.GetLastError(); msg != "" {
			fmt.Println(msg)
		}

		if _, err := tea.NewProgram(tui.New(svc), tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("terminal quiz failed: %w", err)
		}
		return nil
	},
}
