package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/songquiz/internal/server"
	"github.com/audiolibrelab/songquiz/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the SongQuiz web server so the quiz can be hosted from a browser.
This allows you to run the quiz from your smartphone or any device on the same network.

The server will display the local network URL for easy access from mobile devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := strconv.Itoa(cfg.Server.Port)
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetString("port")
		}

		svc, err := service.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		srv := server.New(svc, cfgFile, port)

		slog.Info("SongQuiz web server starting", "port", port, "config", cfgFile, "profile", cfg.Profile)

		// Start server (this blocks)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the web server (overrides config)")
}
