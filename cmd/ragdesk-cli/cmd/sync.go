package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ragdesk/internal/adapters/gateway"
	mcpadapter "ragdesk/internal/adapters/mcp"
	"ragdesk/internal/application/vectorsync"
	"ragdesk/internal/domain"
	"ragdesk/internal/store"
)

var (
	syncWait     bool
	syncForce    bool
	syncChunking string
)

// newCoordinator builds a coordinator for one command; callers Close it
func newCoordinator() *vectorsync.Coordinator {
	return gateway.NewCoordinator(GetGateway(), store.New(store.WithLogger(logger)), cfg, logger)
}

var syncCmd = &cobra.Command{
	Use:   "sync <collection>",
	Short: "Start a vector sync",
	Long: `Start embedding the files of a collection. With --wait the command
polls until the job finishes and prints the final status.

Examples:
  ragdesk-cli sync docs
  ragdesk-cli sync docs --wait --force --chunking fixed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		chunking := domain.ChunkingStrategy(syncChunking)
		switch chunking {
		case domain.ChunkingDefault, domain.ChunkingMarkdown, domain.ChunkingFixed:
		default:
			return fmt.Errorf("unknown chunking strategy %q (expected markdown or fixed)", syncChunking)
		}

		coord := newCoordinator()
		defer coord.Close()
		ctx := cmd.Context()
		if _, err := coord.RefreshSyncStatus(ctx, name); err != nil {
			return err
		}
		if err := coord.SyncCollection(ctx, name, domain.SyncRequest{ChunkingStrategy: chunking, ForceReprocess: syncForce}); err != nil {
			return err
		}
		if !syncWait {
			fmt.Fprintf(cmd.OutOrStdout(), "Sync started for %s\n", name)
			return nil
		}
		st, err := coord.WaitForSync(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), mcpadapter.FormatStatus(name, st))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [collection]",
	Short: "Show vector sync status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			st, err := GetGateway().GetSyncStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(out, mcpadapter.FormatStatus(args[0], st.Normalize()))
			return nil
		}
		all, err := GetGateway().ListSyncStatuses(cmd.Context())
		if err != nil {
			return err
		}
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprint(out, mcpadapter.FormatStatus(name, all[name].Normalize()))
		}
		return nil
	},
}

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Manage the vectors of a collection",
	Long: `Enable or disable vector sync, or delete stored vectors.

Examples:
  ragdesk-cli vectors disable docs
  ragdesk-cli vectors delete docs`,
}

func vectorsAction(use, short, done string, fn func(*vectorsync.Coordinator, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <collection>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := newCoordinator()
			defer coord.Close()
			if err := fn(coord, cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(vectorsCmd)

	syncCmd.Flags().BoolVarP(&syncWait, "wait", "w", false, "wait for the job to finish")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "re-embed files that did not change")
	syncCmd.Flags().StringVar(&syncChunking, "chunking", "", "chunking strategy: markdown or fixed")

	vectorsCmd.AddCommand(vectorsAction("enable", "Enable vector sync", "Enabled sync for",
		func(c *vectorsync.Coordinator, cmd *cobra.Command, name string) error {
			return c.EnableSync(cmd.Context(), name)
		}))
	vectorsCmd.AddCommand(vectorsAction("disable", "Disable vector sync", "Disabled sync for",
		func(c *vectorsync.Coordinator, cmd *cobra.Command, name string) error {
			return c.DisableSync(cmd.Context(), name)
		}))
	vectorsCmd.AddCommand(vectorsAction("delete", "Delete all vectors of a collection", "Deleted vectors of",
		func(c *vectorsync.Coordinator, cmd *cobra.Command, name string) error {
			return c.DeleteVectors(cmd.Context(), name)
		}))
}
