package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ragdesk/internal/adapters/filesystem"
	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

var (
	importFolder string
	importDryRun bool
)

var filesImportCmd = &cobra.Command{
	Use:   "import <collection> <dir>",
	Short: "Import a local directory into a collection",
	Long: `Walk a local directory and write every supported text file into the
collection, keeping the directory structure. Hidden files are ignored and
existing files are overwritten.

Examples:
  ragdesk-cli files import docs ./manual
  ragdesk-cli files import docs ./manual --folder manual --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := args[0]
		prefix := strings.Trim(importFolder, "/")
		if err := application.ValidateFolder(prefix); err != nil {
			return err
		}

		scanner := filesystem.NewScanner(args[1])
		files, skipped, err := scanner.Scan()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range skipped {
			fmt.Fprintf(out, "skip %s: %s\n", s.Path, s.Reason)
		}

		var total int64
		var failed int
		for _, f := range files {
			folder := strings.Trim(prefix+"/"+f.Folder, "/")
			path := domain.FilePath(folder, f.Filename)
			if importDryRun {
				fmt.Fprintf(out, "would write %s (%s)\n", path, humanize.Bytes(uint64(f.Size)))
				continue
			}

			content, err := scanner.Read(f)
			if err == nil {
				var created bool
				created, err = putFile(cmd.Context(), collection, folder, f.Filename, content)
				if err == nil {
					total += f.Size
					fmt.Fprintf(out, "%s %s\n", putVerb(created), path)
					continue
				}
			}
			failed++
			logger.Warn("import failed", "collection", collection, "path", path, "error", err)
			fmt.Fprintf(out, "failed %s: %s\n", path, application.UserMessage(err))
		}

		if importDryRun {
			return nil
		}
		fmt.Fprintf(out, "Imported %d of %d files (%s)\n", len(files)-failed, len(files), humanize.Bytes(uint64(total)))
		if failed > 0 {
			return fmt.Errorf("%d files failed to import", failed)
		}
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesImportCmd)
	filesImportCmd.Flags().StringVar(&importFolder, "folder", "", "collection folder to import into")
	filesImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list the files without writing them")
}
