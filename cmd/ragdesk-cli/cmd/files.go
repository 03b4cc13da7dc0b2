package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"f"},
	Short:   "Manage files in a collection",
	Long: `Show, read, write and delete files. Paths are relative to the
collection root, e.g. guides/setup.md.

Examples:
  ragdesk-cli files tree docs
  ragdesk-cli files cat docs guides/setup.md
  ragdesk-cli files put docs guides/setup.md setup.md
  echo "# Notes" | ragdesk-cli files put docs notes.md
  ragdesk-cli files rm docs guides/setup.md`,
}

var (
	treeFilter string
	treePaths  bool
)

var filesTreeCmd = &cobra.Command{
	Use:   "tree <collection>",
	Short: "Display the file tree of a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listing, err := GetGateway().ListFiles(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tree := domain.FilterTree(domain.BuildTree(listing.FileNodes(), nil), treeFilter)
		if len(tree) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No files.")
			return nil
		}
		if treePaths {
			for _, p := range domain.LeafPaths(tree) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), domain.Outline(tree))
		return nil
	},
}

var filesCatCmd = &cobra.Command{
	Use:   "cat <collection> <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, name := domain.SplitFilePath(args[1])
		content, err := GetGateway().ReadFile(cmd.Context(), args[0], name, folder)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	},
}

var filesPutCmd = &cobra.Command{
	Use:   "put <collection> <path> [source-file]",
	Short: "Create or replace a file",
	Long: `Write a file into a collection. The content is read from source-file,
or from stdin when it is omitted. An existing file is overwritten.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, path := args[0], args[1]
		folder, name := domain.SplitFilePath(path)
		if err := errors.Join(application.ValidateFilename(name), application.ValidateFolder(folder)); err != nil {
			return err
		}

		var src io.Reader = cmd.InOrStdin()
		if len(args) == 3 {
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}
		data, err := io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}

		created, err := putFile(cmd.Context(), collection, folder, name, string(data))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", putVerb(created), collection, path)
		return nil
	},
}

// putFile creates the file, or overwrites it when it already exists
func putFile(ctx context.Context, collection, folder, name, content string) (created bool, err error) {
	_, err = GetGateway().ReadFile(ctx, collection, name, folder)
	switch {
	case err == nil:
		return false, GetGateway().UpdateFile(ctx, collection, name, folder, content)
	case errors.Is(err, application.ErrNotFound):
		req := domain.SaveFileRequest{Filename: name, Folder: folder, Content: content}
		_, err = GetGateway().SaveFile(ctx, collection, req)
		return err == nil, err
	default:
		return false, err
	}
}

func putVerb(created bool) string {
	if created {
		return "Created"
	}
	return "Updated"
}

var filesRmCmd = &cobra.Command{
	Use:   "rm <collection> <path>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, name := domain.SplitFilePath(args[1])
		if err := GetGateway().DeleteFile(cmd.Context(), args[0], name, folder); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesTreeCmd)
	filesCmd.AddCommand(filesCatCmd)
	filesCmd.AddCommand(filesPutCmd)
	filesCmd.AddCommand(filesRmCmd)
	filesTreeCmd.Flags().StringVarP(&treeFilter, "filter", "f", "", "only show names containing this text")
	filesTreeCmd.Flags().BoolVarP(&treePaths, "paths", "p", false, "print one file path per line")
}
