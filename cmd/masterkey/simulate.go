package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/app"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/history"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/host/term"
	"github.com/haberdashPI/vscode-master-key-sub000/internal/state"
)

// session is what simulate reports after the last key.
type session struct {
	Text       string           `yaml:"text"`
	Selections []host.Selection `yaml:"selections"`
	Mode       string           `yaml:"mode"`
	History    []string         `yaml:"history,omitempty"`
	Errors     []string         `yaml:"errors,omitempty"`
	Info       []string         `yaml:"info,omitempty"`
}

func newSimulateCmd(c *cli) *cobra.Command {
	var (
		keys        string
		text        string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "simulate [spec]",
		Short: "Press keys against an in-memory editor",
		Long: `simulate installs the compiled bindings into an in-memory editor and presses
keys against it. Keys come from --keys, or from stdin one line at a time,
written as space separated key names ("g g", "shift+4", "escape"). With
--interactive the editor is shown in the terminal and keys are read from it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.specPath(args)
			if err != nil {
				return err
			}
			logger := c.logger
			if interactive {
				logger = app.DiscardLogger()
			}
			h := host.NewMemory(
				host.WithEditor(host.NewMemoryEditor("untitled", text)),
				host.WithHostLogger(logger),
			)
			s := c.settings
			s.SpecPath = path
			a, err := app.New(app.Options{Settings: s, Host: h, Logger: logger})
			if err != nil {
				return err
			}
			defer a.Close()

			if interactive {
				return runInteractive(cmd.Context(), a, h)
			}
			in := io.Reader(strings.NewReader(keys))
			if keys == "" {
				in = cmd.InOrStdin()
			}
			if err := pressLines(cmd.Context(), h, in); err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), a, h)
		},
	}
	cmd.Flags().StringVarP(&keys, "keys", "k", "", "keys to press, space separated")
	cmd.Flags().StringVarP(&text, "text", "t", "", "initial editor text")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read keys from the terminal")
	return cmd
}

func pressLines(ctx context.Context, h *host.Memory, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := h.PressAll(ctx, line); err != nil {
			return fmt.Errorf("press %q: %w", line, err)
		}
	}
	return sc.Err()
}

func report(w io.Writer, a *app.Application, h *host.Memory) error {
	snap := a.Store().Snapshot()
	out := session{
		Text:       h.Editor().Text(),
		Selections: h.Editor().Selections(),
		Mode:       state.Value(snap, state.ModeKey, ""),
		Errors:     h.Errors(),
		Info:       h.Infos(),
	}
	for _, e := range history.Entries(snap) {
		name := e.Name
		if name == "" && len(e.Do) > 0 {
			name = e.Do[0].Command
		}
		out.History = append(out.History, name)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func runInteractive(ctx context.Context, a *app.Application, h *host.Memory) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	d := a.Dispatcher()
	t := term.New(screen, h,
		term.WithStatusItems(d.Command(dispatcher.StatusMode), d.Command(dispatcher.StatusKeys)),
		term.WithCursorShape(func() string {
			res := a.Bindings()
			if res == nil {
				return ""
			}
			m, _ := res.Mode(state.Value(a.Store().Snapshot(), state.ModeKey, ""))
			return string(m.CursorShape)
		}),
	)
	if err := t.Init(); err != nil {
		return err
	}
	defer t.Shutdown()
	return t.Run(ctx)
}
