package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/songquiz/internal/audio"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List available audio output backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		selected := "auto"
		if cfg != nil {
			selected = cfg.Audio.Backend
		}

		fmt.Printf("🎵 Audio Backends (%s)\n", runtime.GOOS)
		fmt.Printf("═══════════════════════════════════════\n\n")
		for i, b := range audio.GetAvailableBackends() {
			fmt.Printf("  %d. %s\n", i+1, b)
		}
		fmt.Printf("\nConfigured: %s\n", selected)
		fmt.Printf("  • Set audio.backend in the config file or SONGQUIZ_AUDIO_BACKEND\n")
		fmt.Printf("  • 'auto' picks the speaker backend\n")
		return nil
	},
}
