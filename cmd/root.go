// Package cmd implements the gitviz command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitviz-go/internal/buildinfo"
	"github.com/thiagokokada/gitviz-go/internal/config"
	"github.com/thiagokokada/gitviz-go/internal/provider"
)

// ErrIncomplete is returned by check when the goal was not reached.
var ErrIncomplete = errors.New("goal not reached")

func Run() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	root := newServeCmd()
	root.Use = "gitviz [path]"
	root.Short = "Live force-directed view of a git repository's references"
	root.Long = `gitviz serves a page that draws the commits, branches, tags, stashes,
remote branches and HEAD of a repository as a force-directed graph and keeps it
in sync while the repository changes.

When the workspace holds a goal directory (.goal_git by default) the live state
is compared with it and the page shows whether the goal was reached.`
	root.Version = buildinfo.Read().String()
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: <path>/"+config.FileName+")")
	pf.BoolP("verbose", "v", false, "enable verbose logging")
	pf.String("backend", "native", "repository reader: native or cli")
	pf.String("goal-dir", ".goal_git", "goal metadata directory next to .git")
	pf.Bool("goal", true, "compare against the goal directory when present")
	pf.String("completion", config.CompletionPositional, "completion check: positional or multiset")
	_ = root.RegisterFlagCompletionFunc("backend", fixedCompletion("native", "cli"))
	_ = root.RegisterFlagCompletionFunc("completion", fixedCompletion(config.CompletionPositional, config.CompletionMultiset))

	root.AddCommand(newServeCmd(), newSnapshotCmd(), newCheckCmd(), newVersionCmd())
	return root
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// workspaceArg resolves the single workspace named by args, defaulting to the
// current directory.
func workspaceArg(args []string) (string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	return provider.Workspace(args)
}

// setup resolves the workspace, loads the configuration and installs the
// logger. Logs go to the command's stderr.
func setup(cmd *cobra.Command, args []string) (string, *config.Config, error) {
	root, err := workspaceArg(args)
	if err != nil {
		return "", nil, err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, root, cmd.Flags())
	if err != nil {
		return "", nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Verbose)
	if cfg.File != "" {
		slog.Debug("using config file", slog.String("path", cfg.File))
	}
	return root, cfg, nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func relativeName(root string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, root); err == nil && rel != "" && !filepath.IsAbs(rel) && len(rel) < len(root) {
			return rel
		}
	}
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Read().String())
			return err
		},
	}
}
