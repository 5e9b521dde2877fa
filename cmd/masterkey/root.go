package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/app"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/config"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

var version = "dev"

// cli carries what the persistent pre-run resolves for every subcommand.
type cli struct {
	cfgFile  string
	settings config.Settings
	logger   *slog.Logger
	tracing  *app.Tracing
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "masterkey",
		Short: "Compile and exercise modal keybinding specifications",
		Long: `masterkey compiles a modal keybinding specification (TOML, YAML or JSON) into
editor keybindings, reports problems in it, renders its documentation, and
simulates key presses against an in-memory editor.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return c.tracing.Shutdown(ctx)
		},
	}

	d := config.Defaults()
	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "settings file (default: masterkey.{yaml,toml,json} in . or the user config dir)")
	pf.StringP(config.KeySpecPath, "s", d.SpecPath, "binding specification file")
	pf.String(config.KeyNamespace, d.Namespace, "namespace of the built-in commands")
	pf.String(config.KeyContextPrefix, d.ContextPrefix, "prefix of the mirrored context keys")
	pf.Int(config.KeyMaxProblems, d.MaxProblems, "number of problems shown at once")
	pf.String(config.KeyLogLevel, d.LogLevel, "log level: debug, info, warn or error")
	pf.String(config.KeyLogFormat, d.LogFormat, "log format: text or json")
	pf.Bool(config.KeyTrace, d.Trace, "export tracing spans to stderr")

	root.AddCommand(
		newCompileCmd(c),
		newCheckCmd(c),
		newDocsCmd(c),
		newSimulateCmd(c),
		newWatchCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	v := config.New(c.cfgFile)
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	c.settings = s

	lc, err := app.LoggerConfigFrom(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if c.logger, err = app.NewLogger(lc); err != nil {
		return err
	}
	c.tracing, err = app.SetupTracing(s.Trace, cmd.ErrOrStderr())
	return err
}

// specPath returns the file named on the command line, or the configured one.
func (c *cli) specPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if c.settings.SpecPath == "" {
		return "", config.ErrNoSpecPath
	}
	return c.settings.SpecPath, nil
}

// compile compiles the specification without installing it anywhere.
func (c *cli) compile(ctx context.Context, args []string) (*keymap.Result, error) {
	path, err := c.specPath(args)
	if err != nil {
		return nil, err
	}
	s := c.settings
	s.SpecPath = ""
	a, err := app.New(app.Options{Settings: s, Host: host.NewMemory(host.WithHostLogger(c.logger)), Logger: c.logger})
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Compile(ctx, path)
}

// printProblems writes the first maxProblems problems to w.
func (c *cli) printProblems(w io.Writer, res *keymap.Result) {
	if len(res.Problems) == 0 {
		return
	}
	fmt.Fprintln(w, res.Problems.Summary(c.settings.MaxProblems))
}
