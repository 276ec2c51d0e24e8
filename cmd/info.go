package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/songquiz/internal/audio"
	"github.com/audiolibrelab/songquiz/internal/catalog"
	"github.com/audiolibrelab/songquiz/internal/config"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the catalog and the resolved configuration",
	Long:  `Display the catalog's categories and quiz settings, followed by the resolved configuration with inheritance indicators. Shows which values are inherited from default vs profile-specific.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher := audio.NewSourceFetcher(cfg.FetchTimeout())

		fmt.Printf("=== CATALOG ===\n")
		fmt.Printf("location: %s\n", cfg.Catalog)
		cat, err := catalog.Load(cmd.Context(), fetcher, cfg.Catalog)
		if err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Printf("songs_path: %s\n", cat.Path)
			fmt.Printf("debug_mode: %t\n", cat.Debug)
			fmt.Printf("reveal_delay: %s\n", cat.RevealDelay)
			fmt.Printf("durations: %v\n", cat.DurationPresets())
			for _, c := range cat.Summaries() {
				fmt.Printf("%d. %s (%d songs)\n", c.Index, c.Name, c.Count)
			}
		}

		fmt.Printf("\n=== RESOLVED CONFIGURATION (%s) ===\n", cfg.Profile)
		inh := cfg.Inheritance

		fmt.Printf("catalog: %s %s\n", cfg.Catalog, getInheritanceIndicator(inh.Catalog))

		fmt.Printf("\n[Audio]\n")
		fmt.Printf("backend: %s %s\n", cfg.Audio.Backend, getInheritanceIndicator(inh.Audio.Backend))
		fmt.Printf("sample_rate: %d %s\n", cfg.Audio.SampleRate, getInheritanceIndicator(inh.Audio.SampleRate))
		fmt.Printf("buffer_ms: %d %s\n", cfg.Audio.BufferMs, getInheritanceIndicator(inh.Audio.BufferMs))
		fmt.Printf("initial_volume: %.2f %s\n", cfg.Volume(), getInheritanceIndicator(inh.Audio.InitialVolume))
		fmt.Printf("resample_quality: %d %s\n", cfg.Audio.ResampleQuality, getInheritanceIndicator(inh.Audio.ResampleQuality))

		fmt.Printf("\n[Fetch]\n")
		fmt.Printf("timeout_ms: %d %s\n", cfg.Fetch.TimeoutMs, getInheritanceIndicator(inh.Fetch.TimeoutMs))

		fmt.Printf("\n[Server]\n")
		fmt.Printf("port: %d %s\n", cfg.Server.Port, getInheritanceIndicator(inh.Server.Port))

		fmt.Printf("\n[Quiz]\n")
		if delay, ok := cfg.RevealDelay(); ok {
			fmt.Printf("reveal_delay_ms: %d %s\n", delay.Milliseconds(), getInheritanceIndicator(inh.Quiz.RevealDelayMs))
		} else {
			fmt.Printf("reveal_delay_ms: (from catalog) %s\n", getInheritanceIndicator(inh.Quiz.RevealDelayMs))
		}
		fmt.Printf("debug: %t %s\n", cfg.Debug(), getInheritanceIndicator(inh.Quiz.Debug))

		return nil
	},
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case config.Inherited:
		return "[inherited]"
	case config.ProfileSpecific:
		return "[profile-specific]"
	default:
		return "[default]"
	}
}
