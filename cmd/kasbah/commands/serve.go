package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/kasbah/internal/api"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kasbah API server",
	Long: `Start the Kasbah HTTP server.

The server exposes the capture mode, options, capture and save flow as a REST
API and streams state changes and capture results over a WebSocket.`,
	Example: `  # Start server on default port (8080)
  kasbah serve

  # Start server on custom port
  kasbah serve --port 9090

  # Start with debug logging
  kasbah serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()
	port := serverPort(cfg)

	ctrl, svc := newController(configMgr)
	defer svc.Close()

	hist := openHistory(cfg)
	if hist != nil {
		defer hist.Close()
	}

	server := api.NewServer(ctrl, configMgr, hist)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(port)
	}()

	log.Info().
		Int("port", port).
		Str("config", configMgr.GetConfigPath()).
		Msg("Kasbah is running")
	fmt.Printf("Kasbah API listening on http://localhost:%d/api (Ctrl+C to stop)\n", port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	ctrl.Wait()
	return nil
}
