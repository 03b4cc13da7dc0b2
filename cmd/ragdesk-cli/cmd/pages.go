package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ragdesk/internal/application/collections"
	"ragdesk/internal/domain"
	"ragdesk/internal/store"
)

var pagesFolder string

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Import crawl and search results",
}

var pagesAddCmd = &cobra.Command{
	Use:   "add <collection> [results.json]",
	Short: "Save crawl or search results as markdown files",
	Long: `Read a JSON array of page results and save each successful page as a
markdown file with YAML front matter. The array is read from stdin when no
file is given. Each entry has url, title, markdown, score, success and error.

Examples:
  ragdesk-cli pages add docs results.json --folder web
  deep-crawl https://example.com | ragdesk-cli pages add docs`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src io.Reader = cmd.InOrStdin()
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}
		var pages []domain.PageResult
		if err := json.NewDecoder(src).Decode(&pages); err != nil {
			return fmt.Errorf("failed to decode page results: %w", err)
		}

		st := store.New(store.WithLogger(logger))
		ops := collections.New(GetGateway(), st, collections.WithLogger(logger))
		res, err := ops.AddMultiplePagesToCollection(cmd.Context(), args[0], pages, pagesFolder)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range res.Errors {
			fmt.Fprintf(out, "failed %s\n", e)
		}
		fmt.Fprintf(out, "Saved %d pages to %s\n", res.SavedCount, args[0])
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d pages failed", len(res.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
	pagesCmd.AddCommand(pagesAddCmd)
	pagesAddCmd.Flags().StringVar(&pagesFolder, "folder", "", "folder to store the pages in")
}
