package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thiagokokada/gitviz-go/internal/goal"
	"github.com/thiagokokada/gitviz-go/internal/provider"
	"github.com/thiagokokada/gitviz-go/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the live graph page",
		Args:  cobra.ArbitraryArgs,
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.String("addr", server.DefaultAddr, "listen address")
	f.Duration("interval", provider.DefaultInterval, "poll interval")
	f.Bool("watch", true, "also poll when repository metadata changes (disabled in goal mode)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	root, cfg, err := setup(cmd, args)
	if err != nil {
		return err
	}
	reader, err := cfg.Reader()
	if err != nil {
		return err
	}

	var goalReader provider.GoalReader
	if cfg.Goal {
		if recovered, err := goal.Recover(root, cfg.GoalDir); err != nil {
			slog.Error("goal directory recovery failed", slog.Any("error", err))
		} else if recovered {
			slog.Info("restored directories left by an interrupted goal read")
		}
		goalReader = goal.NewReader(cfg.GoalDir, reader)
	}

	p := provider.New(provider.Options{
		Workspaces: []string{root},
		Live:       reader,
		Goal:       goalReader,
		Evaluate:   cfg.Evaluator(),
		Interval:   cfg.Interval,
		Watch:      cfg.Watch,
	})
	defer p.Dispose()
	srv := server.New(server.Config{Addr: cfg.Addr, State: p, Workspace: relativeName(root)})
	p.Attach(srv.Hub())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	slog.Info("watching repository", slog.String("path", root), slog.String("backend", cfg.Backend))

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return p.Run(egctx) })
	eg.Go(func() error { return srv.Serve(egctx) })
	return eg.Wait()
}
