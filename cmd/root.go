package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	rootCmd := &cobra.Command{
		Use:           "dungeon",
		Short:         "AI Dungeon Master: online and offline text adventures in the browser",
		Long:          "dungeon serves an interactive fantasy adventure. Online mode asks a language model for each turn; offline mode plays hand-authored stories. Saves are kept in a local sqlite file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(
		serve,
		newSavesCmd(),
		newStoriesCmd(),
	)
	return rootCmd
}
