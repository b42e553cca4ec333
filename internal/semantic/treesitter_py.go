package semantic

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyExtractor builds outlines from Python source files.
type pyExtractor struct{}

func (e *pyExtractor) Extract(root *tree_sitter.Node, source []byte) outline {
	var o outline

	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor, source, &o, "")
	return o
}

// walk descends the tree carrying the enclosing class name so methods can be
// named "Class.method".
func (e *pyExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte, o *outline, class string) {
	node := cursor.Node()
	next := class

	switch node.Kind() {
	case "function_definition":
		if u := namedUnit(node, source, unitFunction); u != nil {
			if class != "" {
				u.name = class + "." + u.name
			}
			o.units = append(o.units, *u)
		}

	case "class_definition":
		if u := namedUnit(node, source, unitType); u != nil {
			o.units = append(o.units, *u)
			next = u.name
		}

	case "import_statement":
		o.imports = append(o.imports, e.extractImport(node, source)...)

	case "import_from_statement":
		if imp := e.extractFromImport(node, source); imp != nil {
			o.imports = append(o.imports, *imp)
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source, o, next)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source, o, next)
		}
		cursor.GotoParent()
	}
}

func (e *pyExtractor) extractImport(node *tree_sitter.Node, source []byte) []importRef {
	var refs []importRef
	// import_statement children: "import" keyword then dotted_name(s).
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "dotted_name" || child.Kind() == "aliased_import" {
			name := child.Utf8Text(source)
			if name != "" {
				refs = append(refs, importRef{
					path: name,
					line: int(node.StartPosition().Row) + 1,
				})
			}
		}
	}
	return refs
}

// extractFromImport records "from X import Y, Z" as one reference to the
// whole statement text, so any change to the imported names is visible.
func (e *pyExtractor) extractFromImport(node *tree_sitter.Node, source []byte) *importRef {
	text := node.Utf8Text(source)
	if text == "" {
		return nil
	}
	return &importRef{
		path: text,
		line: int(node.StartPosition().Row) + 1,
	}
}
