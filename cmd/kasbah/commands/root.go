package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "kasbah",
		Short: "Kasbah - take screenshots through GNOME Shell",
		Long: `Kasbah takes screenshots of the whole screen, the focused window or a
selected area through the GNOME Shell screenshot service.

Features:
  • Three capture modes with per-mode options
  • Optional pointer, window shadow and capture delay
  • Falls back to gnome-screenshot when the Shell service is absent
  • Save without ever overwriting an existing file
  • Capture history
  • Terminal picker, REST API and WebSocket events`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Replaced once the config file has been read.
			logger.Init(viper.GetString("log_level"), true)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/kasbah/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
