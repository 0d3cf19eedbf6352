package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitviz-go/internal/goal"
	"github.com/thiagokokada/gitviz-go/internal/graph"
	"github.com/thiagokokada/gitviz-go/internal/output"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Check once whether the repository reached its goal state",
		Long: `check compares the live repository with its goal directory and exits
with status 1 when the goal was not reached, printing which labels differ.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := setup(cmd, args)
			if err != nil {
				return err
			}
			reader, err := cfg.Reader()
			if err != nil {
				return err
			}
			goalReader := goal.NewReader(cfg.GoalDir, reader)
			if _, err := goalReader.Recover(root); err != nil {
				return err
			}
			live, err := reader.ReadGraph(cmd.Context(), root)
			if err != nil {
				return err
			}

			res := output.CheckResult{Workspace: relativeName(root), LiveNodes: len(live.Nodes)}
			target, err := goalReader.ReadGoal(cmd.Context(), root)
			if err != nil {
				res.GoalErr = err
			} else {
				res.GoalNodes = len(target.Nodes)
				res.Complete = cfg.Evaluator()(live, target)
				if !res.Complete {
					if res.Diff, err = graph.LabelDiff(live, *target); err != nil {
						return err
					}
				}
			}
			if err := output.WriteCheck(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Complete {
				return ErrIncomplete
			}
			return nil
		},
	}
}
