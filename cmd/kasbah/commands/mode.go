package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:   "mode [screen|window|selection]",
	Short: "Show or set the capture mode",
	Long: `Show the active capture mode and which options apply to it, or switch to
another mode. The mode is remembered between runs.`,
	Example: `  # Show the active mode
  kasbah mode

  # Capture windows from now on
  kasbah mode window`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"screen", "window", "selection"},
	RunE:      runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	settings := configMgr.CaptureSettings()
	if len(args) == 1 {
		mode, err := capture.ParseMode(args[0])
		if err != nil {
			return err
		}
		settings.Mode = mode
		if err := configMgr.SetCaptureSettings(settings); err != nil {
			return fmt.Errorf("failed to save mode: %w", err)
		}
	}

	sens := capture.SensitivityFor(settings.Mode)
	opts := settings.Options

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MODE\t%s\n", settings.Mode)
	fmt.Fprintf(w, "POINTER\t%s\n", optionState(sens.Pointer, fmt.Sprint(opts.IncludePointer)))
	fmt.Fprintf(w, "SHADOW\t%s\n", optionState(sens.Shadow, fmt.Sprint(opts.WindowShadow)))
	fmt.Fprintf(w, "DELAY\t%s\n", optionState(sens.Delay, fmt.Sprintf("%ds", opts.DelaySeconds)))
	return w.Flush()
}

func optionState(sensitive bool, value string) string {
	if !sensitive {
		return value + " (not used in this mode)"
	}
	return value
}
