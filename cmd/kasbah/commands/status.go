package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/display"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether screenshots can be taken",
	Long: `Probe the GNOME Shell screenshot service and the fallback tool and report
which one captures will use.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSTATUS")

	shellStatus := capture.Unavailable.String()
	if shell, err := capture.NewShell(); err == nil {
		shellStatus = shell.Availability(ctx).String()
		shell.Close()
	}
	fmt.Fprintf(w, "gnome-shell\t%s\n", shellStatus)

	if cfg.Capture.FallbackTool {
		tool := capture.NewTool(cfg.Capture.ToolPath)
		fmt.Fprintf(w, "%s\t%s\n", tool.Name(), tool.Availability(ctx))
	} else {
		fmt.Fprintf(w, "%s\tdisabled\n", cfg.Capture.ToolPath)
	}
	w.Flush()

	if conn, err := display.Connect(); err == nil {
		b := conn.Bounds()
		fmt.Printf("\nScreen: %s\n", b)
		if win, err := conn.FocusedWindow(); err == nil {
			fmt.Printf("Focused window: %s (%s) at %s\n", win.Title, win.Class, win.Area)
		}
		conn.Close()
	}

	svc := newService(cfg)
	defer svc.Close()
	if svc.Availability(ctx) != capture.Ready {
		fmt.Println()
		fmt.Println(capture.UserMessage(capture.ErrServiceUnavailable))
	}
	return nil
}
