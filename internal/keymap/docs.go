package keymap

import (
	"fmt"
	"io"
	"strings"
)

// Markdown writes a table of the visible bindings of every mode.
func Markdown(w io.Writer, res *Result, title string) error {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, m := range res.Modes {
		var rows []Binding
		seen := make(map[string]bool)
		for _, bind := range res.Bindings {
			if bind.Args.Mode != m.Name || bind.Args.HideInDocs {
				continue
			}
			id := bind.Args.Key + "\x00" + bind.Args.Name
			if seen[id] {
				continue
			}
			seen[id] = true
			rows = append(rows, bind)
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", m.Name)
		b.WriteString("| Key | Name | Description |\n|---|---|---|\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n",
				r.Args.Key, cell(r.Args.Name), cell(r.Args.Description))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
