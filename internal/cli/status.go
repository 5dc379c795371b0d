package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/contextd/internal/config"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog totals for a project",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&indexRoot, "root", ".", "project root")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(indexRoot)
	if err != nil {
		return ConfigError(fmt.Errorf("resolve root: %w", err))
	}

	if _, err := config.LoadConfigFromDir(root); err != nil {
		return ConfigError(err)
	}

	cat, err := openProjectCatalog(root)
	if err != nil {
		return ConfigError(fmt.Errorf("open catalog: %w", err))
	}
	defer cat.Close()

	totals, err := cat.Totals()
	if err != nil {
		return IndexError(fmt.Errorf("read catalog totals: %w", err))
	}

	if statusJSON {
		out, err := json.MarshalIndent(totals, "", "  ")
		if err != nil {
			return IndexError(fmt.Errorf("marshal totals: %w", err))
		}
		fmt.Println(string(out))
		return nil
	}

	lastIndexed := totals.LastIndexed
	if lastIndexed == "" {
		lastIndexed = "never"
	}
	fmt.Printf("Files:        %d\n", totals.TotalFiles)
	fmt.Printf("Chunks:       %d\n", totals.TotalChunks)
	fmt.Printf("Symbols:      %d\n", totals.TotalSymbols)
	fmt.Printf("Last indexed: %s\n", lastIndexed)
	return nil
}
