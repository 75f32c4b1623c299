package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/display"
	"github.com/spf13/cobra"
)

var flashCmd = &cobra.Command{
	Use:   "flash [X Y WIDTH HEIGHT]",
	Short: "Flash an area of the screen",
	Long: `Ask GNOME Shell to flash a rectangle of the screen.

Without arguments the whole screen is flashed. With --window the focused
window is flashed.`,
	Example: `  # Flash the whole screen
  kasbah flash

  # Flash the focused window
  kasbah flash --window

  # Flash a 200x100 area at 10,10
  kasbah flash 10 10 200 100`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 4 {
			return fmt.Errorf("expected no arguments or X Y WIDTH HEIGHT, got %d arguments", len(args))
		}
		return nil
	},
	RunE: runFlash,
}

var flashWindow bool

func init() {
	rootCmd.AddCommand(flashCmd)

	flashCmd.Flags().BoolVarP(&flashWindow, "window", "w", false, "flash the focused window")
}

func runFlash(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var area capture.Rect
	switch {
	case flashWindow:
		conn, err := display.Connect()
		if err != nil {
			return err
		}
		win, err := conn.FocusedWindow()
		conn.Close()
		if err != nil {
			return err
		}
		if win.Area.Empty() {
			return fmt.Errorf("focused window %q is off screen", win.Title)
		}
		area = win.Area
	case len(args) == 4:
		area, err = parseRect(args)
		if err != nil {
			return err
		}
		if err := display.CheckArea(area); err != nil {
			return err
		}
	default:
		area, err = display.Bounds()
		if err != nil {
			return fmt.Errorf("failed to read screen size: %w", err)
		}
	}

	svc := newService(configMgr.Get())
	defer svc.Close()

	if err := svc.Flash(context.Background(), area); err != nil {
		return fmt.Errorf("%s (%w)", capture.UserMessage(err), err)
	}
	return nil
}

func parseRect(args []string) (capture.Rect, error) {
	var vals [4]int
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return capture.Rect{}, fmt.Errorf("invalid number: %s", arg)
		}
		vals[i] = n
	}
	return capture.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
