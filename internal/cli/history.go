package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/marketscout/internal/history"
	"github.com/ppiankov/marketscout/internal/model"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, export and import saved scout results",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scout results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}

		entries, err := store.Load()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(os.Stderr, "No history in %s\n", store.Path())
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %s  %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.ID, strings.Join(e.Competitors, ", "))
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export saved results as a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}

		n, err := store.Export(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d entries to %s\n", n, args[0])
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import results exported by another installation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore()
		if err != nil {
			return err
		}

		n, err := store.Import(args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Imported %d new entries into %s\n", n, store.Path())
		return nil
	},
}

func historyStore() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newHistoryStore(cfg)
}

func newHistoryStore(cfg *model.Config) (*history.Store, error) {
	if cfg.History.Path == "" {
		return nil, fmt.Errorf("history.path is not configured")
	}
	return history.NewStore(cfg.History.Path), nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
}
