package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ai_dungeon_master/config"
)

func newStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List the offline adventures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg.StoriesPath)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSEGMENTS")
			for _, s := range catalog.Stories() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Title, len(s.Segments))
			}
			return tw.Flush()
		},
	}
}
