package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Drag out an area and print it",
	Long: `Let the user drag out a rectangle with the GNOME Shell selection tool and
print its geometry. Needs the Shell service; the fallback tool cannot report
a selection.`,
	Example: `  # Print the area as WIDTHxHEIGHT+X+Y
  kasbah select

  # Print the area as JSON
  kasbah select --format json`,
	RunE: runSelect,
}

var selectFormat string

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVarP(&selectFormat, "format", "f", "geometry", "output format (geometry or json)")
}

func runSelect(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc := newService(configMgr.Get())
	defer svc.Close()

	area, err := svc.SelectArea(context.Background())
	if err != nil {
		return fmt.Errorf("%s (%w)", capture.UserMessage(err), err)
	}

	switch selectFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(area)
	case "geometry":
		fmt.Println(area)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'geometry' or 'json')", selectFormat)
	}
}
