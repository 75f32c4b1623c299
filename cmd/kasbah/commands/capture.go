package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/config"
	"github.com/bryanchriswhite/kasbah/internal/controller"
	"github.com/bryanchriswhite/kasbah/internal/history"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/bryanchriswhite/kasbah/internal/save"
	"github.com/gen2brain/beeep"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a screenshot",
	Long: `Take a screenshot in the active capture mode and save it.

Mode and option flags are remembered for the next capture, the same way the
picker remembers them. The screenshot is saved under the configured folder
(your Pictures folder by default) and never replaces an existing file.`,
	Example: `  # Capture the whole screen with the saved settings
  kasbah capture

  # Capture the focused window after 3 seconds, without its shadow
  kasbah capture --mode window --delay 3 --shadow=false

  # Drag out an area and copy it to the clipboard
  kasbah capture --mode selection --clipboard

  # Capture to the cache only and print its path
  kasbah capture --no-save`,
	RunE: runCapture,
}

var (
	captureMode      string
	capturePointer   bool
	captureShadow    bool
	captureDelay     int
	captureFolder    string
	captureName      string
	captureNoSave    bool
	captureClipboard bool
	captureNotify    bool
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureMode, "mode", "m", "", "capture mode (screen, window or selection)")
	captureCmd.Flags().BoolVarP(&capturePointer, "pointer", "p", false, "include the mouse pointer")
	captureCmd.Flags().BoolVarP(&captureShadow, "shadow", "s", true, "include the window shadow (window mode)")
	captureCmd.Flags().IntVarP(&captureDelay, "delay", "d", 0, "seconds to wait before capturing")
	captureCmd.Flags().StringVarP(&captureFolder, "folder", "o", "", "folder to save into")
	captureCmd.Flags().StringVarP(&captureName, "name", "n", "", "file name (default \"Screenshot from <date> <time>.png\")")
	captureCmd.Flags().BoolVar(&captureNoSave, "no-save", false, "leave the capture in the cache")
	captureCmd.Flags().BoolVarP(&captureClipboard, "clipboard", "c", false, "copy the capture to the clipboard")
	captureCmd.Flags().BoolVar(&captureNotify, "notify", false, "show a desktop notification with the result")
}

func runCapture(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctrl, svc := newController(configMgr)
	defer svc.Close()

	if err := applyCaptureFlags(cmd, ctrl); err != nil {
		return err
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
		folder:    captureFolder,
		name:      captureName,
		noSave:    captureNoSave,
		clipboard: captureClipboard,
	})
}

// applyCaptureFlags pushes changed flags into the controller.
func applyCaptureFlags(cmd *cobra.Command, ctrl *controller.Controller) error {
	flags := cmd.Flags()

	if flags.Changed("mode") {
		mode, err := capture.ParseMode(captureMode)
		if err != nil {
			return err
		}
		if err := ctrl.SetMode(mode); err != nil {
			return err
		}
	}

	if flags.Changed("pointer") || flags.Changed("shadow") || flags.Changed("delay") {
		opts := ctrl.State().Options
		if flags.Changed("pointer") {
			opts.IncludePointer = capturePointer
		}
		if flags.Changed("shadow") {
			opts.WindowShadow = captureShadow
		}
		if flags.Changed("delay") {
			opts.DelaySeconds = captureDelay
		}
		if err := ctrl.SetOptions(opts); err != nil {
			return err
		}
	}
	return nil
}

type saveRequest struct {
	folder    string
	name      string
	noSave    bool
	clipboard bool
}

// finishCapture runs the save flow for a successful capture: move it out
// of the cache, record it and optionally copy it to the clipboard.
func finishCapture(configMgr *config.Manager, out controller.Outcome, req saveRequest) error {
	log := logger.WithComponent("cli")
	cfg := configMgr.Get()

	path := out.Path
	if !req.noSave {
		folder := req.folder
		if folder == "" {
			folder = cfg.Save.Folder
		}
		name := req.name
		if name == "" {
			name = save.DefaultFilename(out.At)
		}

		dest, err := save.Move(out.Path, folder, name)
		if err != nil {
			if errors.Is(err, save.ErrDestinationExists) {
				notify("Screenshot not saved", "A file with that name already exists.", "")
				return fmt.Errorf("not saved, a file with that name already exists: %w (capture kept at %s)", err, out.Path)
			}
			return fmt.Errorf("failed to save screenshot: %w", err)
		}
		path = dest

		if store := openHistory(cfg); store != nil {
			err := store.Record(&history.Entry{
				Path:           dest,
				Mode:           out.Mode.String(),
				Backend:        out.Backend,
				IncludePointer: out.Options.IncludePointer,
				WindowShadow:   out.Options.WindowShadow,
				DelaySeconds:   out.Options.DelaySeconds,
				CreatedAt:      out.At,
			})
			if err != nil {
				log.Warn().Err(err).Msg("Failed to record capture history")
			}
			store.Close()
		}
	}

	if req.clipboard {
		if err := save.CopyToClipboard(path); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
	}

	notify("Screenshot taken", path, path)
	fmt.Println(path)
	return nil
}

// notify shows a desktop notification when --notify is set.
func notify(title, message, icon string) {
	if !captureNotify {
		return
	}
	if err := beeep.Notify(title, message, icon); err != nil {
		logger.WithComponent("cli").Debug().Err(err).Msg("Failed to show notification")
	}
}
