package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

var crawlFolder string

var crawlCmd = &cobra.Command{
	Use:   "crawl <collection> <url>",
	Short: "Crawl a web page into a collection",
	Long: `Fetch a page, convert it to markdown and store it in the collection.

Examples:
  ragdesk-cli crawl docs https://example.com/guide
  ragdesk-cli crawl docs https://example.com/guide --folder web`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.CrawlRequest{URL: args[1], Folder: crawlFolder}
		if err := errors.Join(application.ValidateURL(req.URL), application.ValidateFolder(req.Folder)); err != nil {
			return err
		}
		res, err := GetGateway().CrawlToCollection(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s as %s (%d bytes)\n",
			res.URL, domain.FilePath(res.Folder, res.Filename), res.ContentLength)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().StringVar(&crawlFolder, "folder", "", "folder to store the page in")
}
