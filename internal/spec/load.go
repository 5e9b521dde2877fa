package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/diag"
)

// SupportedVersion is the semver constraint document versions must meet.
const SupportedVersion = "^1"

// Format identifies a document syntax.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads and decodes the document at path.
func LoadFile(path string) (*Document, diag.Problems, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read spec: %w", err)
	}
	return Parse(data, format, path)
}

// Load reads a document of the given format from r.
func Load(r io.Reader, format Format) (*Document, diag.Problems, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read spec: %w", err)
	}
	return Parse(data, format, "<reader>")
}

// Parse decodes raw document bytes. The error is non-nil only for syntax
// errors and version failures; everything else is a problem.
func Parse(data []byte, format Format, source string) (*Document, diag.Problems, error) {
	raw := make(map[string]any)
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return Decode(raw, source)
}

// Decode converts a generic document map into a Document.
func Decode(raw map[string]any, source string) (*Document, diag.Problems, error) {
	var problems diag.Problems
	doc := &Document{Source: source}

	if err := decodeStrict(raw["header"], &doc.Header, "header", &problems); err != nil {
		return nil, problems, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	if err := CheckVersion(doc.Header.Version); err != nil {
		return nil, problems, &ParseError{Path: source, Message: err.Error(), Err: err}
	}

	if d, ok := raw["define"].(map[string]any); ok {
		doc.Define = d
	} else if raw["define"] != nil {
		problems.Errorf("define", "expected a table, got %T", raw["define"])
	}

	doc.Mode = decodeModes(raw["mode"], &problems)
	doc.Path = decodePaths(raw["path"], &problems)
	doc.Bind = decodeItems(raw["bind"], &problems)

	for k := range raw {
		switch k {
		case "header", "define", "mode", "path", "bind":
		default:
			problems.Warnf("", "unknown top-level field %q", k)
		}
	}
	return doc, problems, nil
}

// CheckVersion validates a header version against SupportedVersion.
func CheckVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return ErrMissingVersion
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleVersion, version, err)
	}
	c, err := semver.NewConstraint(SupportedVersion)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleVersion, v, SupportedVersion)
	}
	return nil
}

func decodeModes(v any, problems *diag.Problems) []Mode {
	entries := asList(v, "mode", problems)
	modes := make([]Mode, 0, len(entries))
	seen := make(map[string]bool)
	defaults := 0
	for i, e := range entries {
		src := fmt.Sprintf("mode[%d]", i)
		var m Mode
		if err := decodeStrict(e, &m, src, problems); err != nil {
			problems.Errorf(src, "%v", err)
			continue
		}
		if m.Name == "" {
			problems.Errorf(src, "mode has no name")
			continue
		}
		if seen[m.Name] {
			problems.Errorf(src, "duplicate mode %q", m.Name)
			continue
		}
		if !validHighlight(m.Highlight) {
			problems.Errorf(src, "unknown highlight %q", m.Highlight)
			m.Highlight = HighlightNone
		}
		if !validCursor(m.CursorShape) {
			problems.Errorf(src, "unknown cursorShape %q", m.CursorShape)
			m.CursorShape = CursorLine
		}
		if !validNoBinding(m.WhenNoBinding) {
			problems.Errorf(src, "unknown whenNoBinding %q", m.WhenNoBinding)
			m.WhenNoBinding = NoBindingNone
		}
		if m.Default {
			defaults++
			if defaults > 1 {
				problems.Errorf(src, "mode %q is a second default mode", m.Name)
				m.Default = false
			}
		}
		seen[m.Name] = true
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		modes = append(modes, Mode{Name: "insert", Default: true, Highlight: HighlightNone, CursorShape: CursorLine, WhenNoBinding: NoBindingInsert})
	}
	if !seen[CaptureMode] {
		modes = append(modes, Mode{Name: CaptureMode, Highlight: HighlightAlert, CursorShape: CursorUnderline, WhenNoBinding: NoBindingNone})
	}
	for i, m := range modes {
		if m.FallbackBindings == "" {
			continue
		}
		if m.FallbackBindings == m.Name {
			problems.Errorf(fmt.Sprintf("mode[%s]", m.Name), "mode cannot fall back to itself")
			modes[i].FallbackBindings = ""
			continue
		}
		found := false
		for _, o := range modes {
			found = found || o.Name == m.FallbackBindings
		}
		if !found {
			problems.Errorf(fmt.Sprintf("mode[%s]", m.Name), "fallbackBindings names unknown mode %q", m.FallbackBindings)
			modes[i].FallbackBindings = ""
		}
	}
	return modes
}

func decodePaths(v any, problems *diag.Problems) []Path {
	entries := asList(v, "path", problems)
	paths := make([]Path, 0, len(entries))
	seen := make(map[string]bool)
	for i, e := range entries {
		src := fmt.Sprintf("path[%d]", i)
		var p Path
		if err := decodeStrict(e, &p, src, problems); err != nil {
			problems.Errorf(src, "%v", err)
			continue
		}
		if p.ID == "" {
			problems.Errorf(src, "path has no id")
			continue
		}
		if seen[p.ID] {
			problems.Errorf(src, "duplicate path id %q", p.ID)
			continue
		}
		if parent := p.Parent(); parent != "" && !seen[parent] {
			problems.Errorf(src, "path %q is declared before its parent %q", p.ID, parent)
			continue
		}
		seen[p.ID] = true
		paths = append(paths, p)
	}
	return paths
}

func decodeItems(v any, problems *diag.Problems) []Item {
	entries := asList(v, "bind", problems)
	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		src := fmt.Sprintf("bind[%d]", i)
		var it Item
		if err := decodeStrict(e, &it, src, problems); err != nil {
			problems.Errorf(src, "%v", err)
			continue
		}
		it.Index = i
		items = append(items, it)
	}
	return items
}

func asList(v any, name string, problems *diag.Problems) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out
	case map[string]any:
		return []any{x}
	default:
		problems.Errorf(name, "expected a list, got %T", v)
		return nil
	}
}

// decodeStrict decodes input into out, reporting unknown fields as warnings.
func decodeStrict(input, out any, source string, problems *diag.Problems) error {
	if input == nil {
		return nil
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return err
	}
	for _, u := range md.Unused {
		problems.Warnf(source, "unknown field %q", u)
	}
	return nil
}

func validHighlight(h Highlight) bool {
	switch h {
	case "", HighlightNone, HighlightOn, HighlightAlert:
		return true
	}
	return false
}

func validCursor(c CursorShape) bool {
	switch c {
	case "", CursorLine, CursorBlock, CursorUnderline, CursorLineThin, CursorBlockOutline, CursorUnderlineThin:
		return true
	}
	return false
}

func validNoBinding(w WhenNoBinding) bool {
	switch w {
	case "", NoBindingNone, NoBindingIgnore, NoBindingInsert:
		return true
	}
	return false
}
