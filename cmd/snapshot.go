package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitviz-go/internal/output"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [path]",
		Short: "Print the graph of a repository once",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := setup(cmd, args)
			if err != nil {
				return err
			}
			formatName, _ := cmd.Flags().GetString("output")
			format, err := output.ParseFormat(formatName)
			if err != nil {
				return err
			}
			noColor, _ := cmd.Flags().GetBool("no-color")

			reader, err := cfg.Reader()
			if err != nil {
				return err
			}
			g, err := reader.ReadGraph(cmd.Context(), root)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if format == output.FormatJSON {
				return output.WriteJSON(w, g, !noColor && output.IsTerminal(w))
			}
			return output.WriteTable(w, g)
		},
	}
	cmd.Flags().StringP("output", "o", string(output.FormatTable), "output format: table or json")
	cmd.Flags().Bool("no-color", false, "disable JSON highlighting")
	_ = cmd.RegisterFlagCompletionFunc("output", fixedCompletion(string(output.FormatTable), string(output.FormatJSON)))
	return cmd
}
