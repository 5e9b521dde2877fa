package spec

// Highlight is the status highlight level of a mode.
type Highlight string

// Highlight levels.
const (
	HighlightNone  Highlight = "NoHighlight"
	HighlightOn    Highlight = "Highlight"
	HighlightAlert Highlight = "Alert"
)

// CursorShape is the cursor style shown while a mode is active.
type CursorShape string

// Cursor shapes.
const (
	CursorLine          CursorShape = "Line"
	CursorBlock         CursorShape = "Block"
	CursorUnderline     CursorShape = "Underline"
	CursorLineThin      CursorShape = "LineThin"
	CursorBlockOutline  CursorShape = "BlockOutline"
	CursorUnderlineThin CursorShape = "UnderlineThin"
)

// WhenNoBinding selects what a mode does with keys it does not bind.
type WhenNoBinding string

// WhenNoBinding behaviors.
const (
	NoBindingNone   WhenNoBinding = "none"
	NoBindingIgnore WhenNoBinding = "ignoreCharacters"
	NoBindingInsert WhenNoBinding = "insertCharacters"
)

// CaptureMode is the mode active while keys are being captured.
const CaptureMode = "capture"

// Header is the document header.
type Header struct {
	Version            string   `mapstructure:"version"`
	Name               string   `mapstructure:"name"`
	Description        string   `mapstructure:"description"`
	RequiredExtensions []string `mapstructure:"requiredExtensions"`
}

// Mode defines one keybinding mode.
type Mode struct {
	Name             string        `mapstructure:"name"`
	Default          bool          `mapstructure:"default"`
	Highlight        Highlight     `mapstructure:"highlight"`
	CursorShape      CursorShape   `mapstructure:"cursorShape"`
	RecordEdits      bool          `mapstructure:"recordEdits"`
	WhenNoBinding    WhenNoBinding `mapstructure:"whenNoBinding"`
	FallbackBindings string        `mapstructure:"fallbackBindings"`
}

// Path is one node of the default-inheritance tree. A path with id
// "motion.word" inherits the defaults of "motion".
type Path struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Default     Item   `mapstructure:"default"`
}

// Parent returns the id of the enclosing path, or "" for a root.
func (p Path) Parent() string {
	for i := len(p.ID) - 1; i >= 0; i-- {
		if p.ID[i] == '.' {
			return p.ID[:i]
		}
	}
	return ""
}

// Document is a decoded binding specification.
type Document struct {
	Header Header
	Bind   []Item
	Path   []Path
	Mode   []Mode
	Define map[string]any

	// Source names where the document came from.
	Source string
}

// DefaultMode returns the name of the mode marked default, falling back to
// the first declared mode.
func (d *Document) DefaultMode() string {
	for _, m := range d.Mode {
		if m.Default {
			return m.Name
		}
	}
	if len(d.Mode) > 0 {
		return d.Mode[0].Name
	}
	return ""
}

// FindMode returns the named mode.
func (d *Document) FindMode(name string) (Mode, bool) {
	for _, m := range d.Mode {
		if m.Name == name {
			return m, true
		}
	}
	return Mode{}, false
}

// ModeNames returns declared mode names in declaration order.
func (d *Document) ModeNames() []string {
	names := make([]string, len(d.Mode))
	for i, m := range d.Mode {
		names[i] = m.Name
	}
	return names
}
