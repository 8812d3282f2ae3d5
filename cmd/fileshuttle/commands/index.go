package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/media/index"
)

func newIndexCmd() *cobra.Command {
	var (
		root    string
		dir     string
		exclude []string
		prune   bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan a directory tree into the media index",
		Long: `Register every image under the root in the media index so the shuttle
can serve thumbnails for it. The index is locked while open, so run this
while "fileshuttle serve" is stopped. A running server keeps its own index
current every MEDIA_RESCAN_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadOrDefault()
			if !cmd.Flags().Changed("root") {
				root = cfg.Shuttle.Root
			}
			if !cmd.Flags().Changed("index-dir") {
				dir = cfg.Media.IndexDir
			}
			if !cmd.Flags().Changed("exclude") {
				exclude = cfg.Media.Exclude
			}

			logger := logging.NewOrNop(cfg.Logging.Level, cfg.Logging.Development)
			defer func() { _ = logger.Sync() }()

			ix, err := index.Open(dir, logger.Component("index"))
			if err != nil {
				return err
			}
			defer func() { _ = ix.Close() }()

			ctx := cmd.Context()
			if prune {
				removed, err := ix.Prune(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d stale entries\n", removed)
			}

			result, err := ix.Scan(ctx, root, exclude)
			if err != nil {
				return err
			}
			total, err := ix.Count(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %d images (%d excluded), %d indexed in total\n",
				result.Registered, result.Excluded, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory to scan (default SHUTTLE_ROOT)")
	cmd.Flags().StringVar(&dir, "index-dir", "", "Index directory (default MEDIA_INDEX_DIR)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Doublestar patterns to skip, relative to the root (default MEDIA_EXCLUDE)")
	cmd.Flags().BoolVar(&prune, "prune", false, "Drop entries whose files are gone before scanning")
	return cmd
}
