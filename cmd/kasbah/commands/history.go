package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/kasbah/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved screenshots",
	Long:  `List screenshots saved by Kasbah, newest first.`,
	Example: `  # Show the last 20 screenshots
  kasbah history

  # Show the last 5 as JSON
  kasbah history list --limit 5 --format json

  # Forget screenshots whose file was deleted
  kasbah history prune`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved screenshots",
	RunE:  runHistoryList,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget screenshots that no longer exist on disk",
	RunE:  runHistoryPrune,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)

	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of entries to show")
		c.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format (table or json)")
	}
}

func openHistoryStore() (*history.Store, error) {
	if _, err := loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		return nil, err
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	if historyFormat != "table" {
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", historyFormat)
	}

	if len(entries) == 0 {
		fmt.Println("No screenshots saved yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTAKEN\tMODE\tBACKEND\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Mode,
			e.Backend,
			e.Path,
		)
	}
	return w.Flush()
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d missing screenshot(s) from history\n", removed)
	return nil
}
