package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ragdesk/internal/application/collections"
)

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"c"},
	Short:   "Manage collections",
	Long: `List, create and delete collections.

Examples:
  ragdesk-cli collections list
  ragdesk-cli collections create docs "Product documentation"
  ragdesk-cli collections delete docs`,
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := GetGateway().ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No collections.")
			return nil
		}
		for _, c := range list {
			fmt.Fprintf(out, "%s\t%d files\t%s", c.Name, c.FileCount, humanize.Bytes(uint64(c.Metadata.TotalSize)))
			if c.Description != "" {
				fmt.Fprintf(out, "\t%s", c.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a collection",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := collections.CreateCollectionRequest{Name: args[0]}
		if len(args) == 2 {
			req.Description = args[1]
		}
		if err := req.Validate(); err != nil {
			return err
		}
		created, err := GetGateway().CreateCollection(cmd.Context(), req.Name, req.Description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created collection %s\n", created.Name)
		return nil
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and all its files",
	Long: `Delete a collection with all its files and vectors.

Warning: This operation cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := GetGateway().DeleteCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsCreateCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
}
