package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/app"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [spec]",
		Short: "Recompile a specification whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.specPath(args)
			if err != nil {
				return err
			}
			s := c.settings
			s.SpecPath = path
			h := host.NewMemory(host.WithHostLogger(c.logger))
			a, err := app.New(app.Options{Settings: s, Host: h, Logger: c.logger})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Watch(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (%d bindings)\n", path, len(a.Bindings().Bindings))
			<-ctx.Done()
			m := a.Metrics().Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%d loads, %d failed\n", m.Loads, m.Failures)
			return nil
		},
	}
}
