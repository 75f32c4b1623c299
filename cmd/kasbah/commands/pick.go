package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/picker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a capture mode interactively, then take a screenshot",
	Long: `Open a terminal picker with the three capture modes and the pointer,
shadow and delay options. Options that do not apply to the selected mode are
greyed out. Press enter to take the screenshot; the picker closes first so it
does not end up in the capture.`,
	RunE: runPick,
}

var (
	pickFolder    string
	pickClipboard bool
)

func init() {
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().StringVarP(&pickFolder, "folder", "o", "", "folder to save into")
	pickCmd.Flags().BoolVarP(&pickClipboard, "clipboard", "c", false, "copy the capture to the clipboard")
	pickCmd.Flags().BoolVar(&captureNotify, "notify", false, "show a desktop notification with the result")
}

func runPick(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctrl, svc := newController(configMgr)
	defer svc.Close()

	final, err := tea.NewProgram(picker.New(ctrl), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("picker failed: %w", err)
	}
	if m, ok := final.(picker.Model); !ok || !m.Confirmed() {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := ctrl.Capture(ctx)
	if err != nil {
		msg := capture.UserMessage(err)
		notify("Screenshot failed", msg, "")
		return fmt.Errorf("%s (%w)", msg, err)
	}

	return finishCapture(configMgr, out, saveRequest{
		folder:    pickFolder,
		clipboard: pickClipboard,
	})
}
