package spec

// Item is a raw binding item or a path default. Nil fields are unset and
// inherit from the enclosing path during Merge.
type Item struct {
	Path           string            `mapstructure:"path"`
	Key            []string          `mapstructure:"key"`
	Mode           []string          `mapstructure:"mode"`
	When           []string          `mapstructure:"when"`
	Prefixes       []string          `mapstructure:"prefixes"`
	Command        *string           `mapstructure:"command"`
	Args           map[string]any    `mapstructure:"args"`
	ComputedArgs   map[string]string `mapstructure:"computedArgs"`
	If             any               `mapstructure:"if"`
	Name           *string           `mapstructure:"name"`
	Description    *string           `mapstructure:"description"`
	HideInPalette  *bool             `mapstructure:"hideInPalette"`
	HideInDocs     *bool             `mapstructure:"hideInDocs"`
	Priority       *int              `mapstructure:"priority"`
	ResetTransient *bool             `mapstructure:"resetTransient"`
	Repeat         any               `mapstructure:"repeat"`
	Kind           *string           `mapstructure:"kind"`

	// Index is the position of the item in the document's bind list.
	Index int `mapstructure:"-"`
}

// Merge returns over layered on top of base. Scalars set in over win,
// when clauses concatenate (base first), prefixes and modes are replaced
// when over sets them, and argument maps deep-merge.
func Merge(base, over Item) Item {
	out := base
	out.Index = over.Index
	if over.Path != "" {
		out.Path = over.Path
	}
	if over.Key != nil {
		out.Key = append([]string(nil), over.Key...)
	}
	if over.Mode != nil {
		out.Mode = append([]string(nil), over.Mode...)
	}
	if len(over.When) > 0 {
		out.When = append(append([]string(nil), base.When...), over.When...)
	}
	if over.Prefixes != nil {
		out.Prefixes = append([]string(nil), over.Prefixes...)
	}
	out.Command = pick(base.Command, over.Command)
	out.Args = DeepMerge(base.Args, over.Args)
	if over.ComputedArgs != nil || base.ComputedArgs != nil {
		out.ComputedArgs = make(map[string]string, len(base.ComputedArgs)+len(over.ComputedArgs))
		for k, v := range base.ComputedArgs {
			out.ComputedArgs[k] = v
		}
		for k, v := range over.ComputedArgs {
			out.ComputedArgs[k] = v
		}
	}
	if over.If != nil {
		out.If = over.If
	}
	out.Name = pick(base.Name, over.Name)
	out.Description = pick(base.Description, over.Description)
	out.HideInPalette = pick(base.HideInPalette, over.HideInPalette)
	out.HideInDocs = pick(base.HideInDocs, over.HideInDocs)
	out.Priority = pick(base.Priority, over.Priority)
	out.ResetTransient = pick(base.ResetTransient, over.ResetTransient)
	if over.Repeat != nil {
		out.Repeat = over.Repeat
	}
	out.Kind = pick(base.Kind, over.Kind)
	return out
}

func pick[T any](base, over *T) *T {
	if over != nil {
		v := *over
		return &v
	}
	if base != nil {
		v := *base
		return &v
	}
	return nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or def when p is nil.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
