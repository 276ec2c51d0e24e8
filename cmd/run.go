package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/songquiz/internal/quiz"
	"github.com/audiolibrelab/songquiz/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run [category]",
	Short: "Run a quiz round without the interactive screen",
	Long: `Run one quiz round on a category, given by index or name. Use -p to choose
the steps, e.g. 'lpr' loads a song, plays a clip and reveals the answer.
Each step waits for the previous one to settle.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipeline == "" {
			return fmt.Errorf("no pipeline specified, use -p flag (e.g., -p lpr)")
		}

		duration, _ := cmd.Flags().GetDuration("duration")
		index, _ := cmd.Flags().GetInt("index")

		svc, err := service.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		category, err := resolveCategory(svc, args[0])
		if err != nil {
			return err
		}

		steps := []rune(strings.ToLower(pipeline))
		for i, step := range steps {
			fmt.Printf("Pipeline: executing step %d/%d: '%c'...\n", i+1, len(steps), step)
			if err := runStep(svc, step, category, index, duration); err != nil {
				return err
			}
		}
		return nil
	},
}

func runStep(svc service.Service, step rune, category, index int, duration time.Duration) error {
	switch step {
	case 'l':
		var err error
		if index >= 0 {
			_, err = svc.GetSongAt(category, index)
		} else {
			_, err = svc.GetSong(category)
		}
		if err != nil {
			return fmt.Errorf("pipeline load failed: %w", err)
		}
		snap, err := waitFor(svc, cfg.FetchTimeout()+5*time.Second, func(s quiz.Snapshot) bool { return !s.Loading() })
		if err != nil {
			return fmt.Errorf("pipeline load failed: %w", err)
		}
		if snap.LastErr != "" {
			fmt.Printf("Pipeline: song could not be decoded: %s\n", snap.LastErr)
		}
		fmt.Printf("Now guessing: %s\n", snap.DisplayName())

	case 'p', 't':
		if step == 'p' {
			res := svc.PlaySong(duration, false)
			if !res.OK() {
				fmt.Printf("Pipeline: nothing played (%s)\n", res.Reason)
				return nil
			}
		} else if !svc.ToggleSong() {
			return nil
		}
		if _, err := waitFor(svc, maxClip(duration), notPlaying); err != nil {
			return fmt.Errorf("pipeline play failed: %w", err)
		}
		fmt.Println("Pipeline: playback completed")

	case 'r':
		if svc.Status().Playing {
			svc.ToggleSong()
		}
		if !svc.RevealSong() {
			return fmt.Errorf("pipeline reveal failed: no song to reveal")
		}
		snap, err := waitFor(svc, svc.RevealDelay()+5*time.Second, func(s quiz.Snapshot) bool { return s.Phase == quiz.Finished })
		if err != nil {
			return fmt.Errorf("pipeline reveal failed: %w", err)
		}
		if snap.Current != nil {
			fmt.Printf("Answer: %s [%s]\n", snap.Current.Name, snap.Current.Category)
		}
	}
	return nil
}

// maxClip bounds how long a play step may wait.
func maxClip(d time.Duration) time.Duration {
	if d > 0 {
		return d + 5*time.Second
	}
	return 15 * time.Minute
}

// resolveCategory accepts either a category index or a case-insensitive name.
func resolveCategory(svc service.Service, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	for _, c := range svc.Categories() {
		if strings.EqualFold(c.Name, arg) {
			return c.Index, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", arg)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("duration", "d", 2*time.Second, "clip length for play steps (0 plays to the end)")
	cmd.Flags().IntP("index", "i", -1, "load this song index instead of a random one (debug mode only)")
}

func init() {
	addRunFlags(runCmd)
}
