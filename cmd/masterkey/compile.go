package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/keymap"
)

func newCompileCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile [spec]",
		Short: "Compile a specification into keybindings JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.compile(cmd.Context(), args)
			if err != nil {
				return err
			}
			c.printProblems(cmd.ErrOrStderr(), res)

			data, err := json.MarshalIndent(res.Bindings, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the bindings to a file instead of stdout")
	return cmd
}

func newCheckCmd(c *cli) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check [spec]",
		Short: "Report problems in a specification",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.compile(cmd.Context(), args)
			if err != nil {
				return err
			}
			c.printProblems(cmd.ErrOrStderr(), res)
			if res.Problems.HasErrors() || strict && len(res.Problems) > 0 {
				return fmt.Errorf("%d problems", len(res.Problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d bindings in %d modes\n", len(res.Bindings), len(res.Modes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}

func newDocsCmd(c *cli) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "docs [spec]",
		Short: "Render the visible bindings as markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.compile(cmd.Context(), args)
			if err != nil {
				return err
			}
			c.printProblems(cmd.ErrOrStderr(), res)
			return keymap.Markdown(cmd.OutOrStdout(), res, title)
		},
	}
	cmd.Flags().StringVar(&title, "title", "Keybindings", "document title")
	return cmd
}
