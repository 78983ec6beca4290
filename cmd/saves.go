package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Inspect and remove saved games",
	}
	cmd.AddCommand(newSavesListCmd(), newSavesDeleteCmd())
	return cmd
}

func newSavesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.Close()

			saves, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(saves) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no saves")
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLAYER\tSAVED")
			for _, s := range saves {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.PlayerName, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func newSavesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid save id %q", args[0])
			}

			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted save %d\n", id)
			return err
		},
	}
}
