package semantic

// unitKind distinguishes the top-level definition kinds an outline tracks.
type unitKind int

const (
	unitFunction unitKind = iota
	unitType
)

// unit is one top-level definition (function, method, type, or class).
// Methods are named "Receiver.Name" so a method and a free function with the
// same name stay distinct.
type unit struct {
	kind      unitKind
	name      string
	startLine int // 1-based, inclusive
	endLine   int
	text      string // full source text of the definition
}

// importRef is one import or module reference.
type importRef struct {
	path string
	line int
}

// hookCall is one reactive/hook-style call inside a function body.
type hookCall struct {
	name string
	line int
}

// outline is the structural summary of one file version: the inputs the
// change differ works from. hooks is keyed by enclosing function name and is
// only populated for UI-component languages.
type outline struct {
	imports []importRef
	units   []unit
	hooks   map[string][]hookCall
}

// addHook records a hook call under its enclosing function.
func (o *outline) addHook(fn string, call hookCall) {
	if o.hooks == nil {
		o.hooks = make(map[string][]hookCall)
	}
	o.hooks[fn] = append(o.hooks[fn], call)
}
