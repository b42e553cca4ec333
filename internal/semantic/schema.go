package semantic

// --- Enums ---

// Language identifies a programming language for analysis.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// SupportedLanguages are languages with full semantic-change support
// (import, function, type, and hook detection) tested in CI.
var SupportedLanguages = []Language{LangGo, LangTypeScript, LangPython, LangRust}

// ChangeType classifies one semantic edit to a file.
type ChangeType string

const (
	ChangeAddImport      ChangeType = "add_import"
	ChangeRemoveImport   ChangeType = "remove_import"
	ChangeAddFunction    ChangeType = "add_function"
	ChangeModifyFunction ChangeType = "modify_function"
	ChangeRemoveFunction ChangeType = "remove_function"
	ChangeAddType        ChangeType = "add_type"
	ChangeAddHookCall    ChangeType = "add_hook_call"
)

// Additive reports whether this change type only introduces new code.
// Modifications and removals touch existing code and are never additive.
func (t ChangeType) Additive() bool {
	switch t {
	case ChangeAddImport, ChangeAddFunction, ChangeAddType, ChangeAddHookCall:
		return true
	default:
		return false
	}
}

// --- Locations ---

// LocationFileTop is the structural scope shared by file-level edits such as
// imports.
const LocationFileTop = "file_top"

// FunctionLocation returns the structural scope key for a function body.
func FunctionLocation(name string) string {
	return "function:" + name
}

// TypeLocation returns the structural scope key for a type or class
// definition.
func TypeLocation(name string) string {
	return "type:" + name
}

// --- Models ---

// Change represents one classified semantic edit.
type Change struct {
	Type      ChangeType `json:"type"`
	Target    string     `json:"target"`   // symbol name affected
	Location  string     `json:"location"` // structural scope key
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	// ContentAfter holds the new source text of the changed unit, used when
	// reconstructing a merge. Empty for removals.
	ContentAfter string `json:"contentAfter,omitempty"`
}

// Additive reports whether the change only introduces new code.
func (c Change) Additive() bool {
	return c.Type.Additive()
}

// Overlaps reports whether two changes touch the same structural scope.
// Changes in different scopes never overlap, regardless of line numbers.
func (c Change) Overlaps(other Change) bool {
	return c.Location == other.Location
}

// FileAnalysis is the output of analyzing one file version or one
// before/after pair.
type FileAnalysis struct {
	FilePath string   `json:"filePath"`
	Changes  []Change `json:"changes"`
}

// AdditiveOnly reports whether every contained change is additive.
// Vacuously true for an empty change list.
func (a *FileAnalysis) AdditiveOnly() bool {
	for _, c := range a.Changes {
		if !c.Additive() {
			return false
		}
	}
	return true
}
