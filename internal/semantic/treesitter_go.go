package semantic

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// goExtractor builds outlines from Go source files.
type goExtractor struct{}

func (e *goExtractor) Extract(root *tree_sitter.Node, source []byte) outline {
	var o outline

	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor, source, &o)
	return o
}

func (e *goExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte, o *outline) {
	node := cursor.Node()

	switch node.Kind() {
	case "function_declaration":
		if u := namedUnit(node, source, unitFunction); u != nil {
			o.units = append(o.units, *u)
		}

	case "method_declaration":
		if u := e.extractMethod(node, source); u != nil {
			o.units = append(o.units, *u)
		}

	case "type_declaration":
		o.units = append(o.units, e.extractTypeDeclaration(node, source)...)

	case "import_spec":
		if imp := e.extractImport(node, source); imp != nil {
			o.imports = append(o.imports, *imp)
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source, o)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source, o)
		}
		cursor.GotoParent()
	}
}

// extractMethod names methods "Receiver.Name" so a method and a free
// function sharing a name stay distinct.
func (e *goExtractor) extractMethod(node *tree_sitter.Node, source []byte) *unit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Utf8Text(source)
	if recv := goReceiverType(node, source); recv != "" {
		name = recv + "." + name
	}
	return &unit{
		kind:      unitFunction,
		name:      name,
		startLine: int(node.StartPosition().Row) + 1,
		endLine:   int(node.EndPosition().Row) + 1,
		text:      node.Utf8Text(source),
	}
}

// goReceiverType extracts the receiver's base type name from a
// method_declaration, e.g. "(s *Store)" yields "Store".
func goReceiverType(node *tree_sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := strings.Trim(recv.Utf8Text(source), "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	typ = strings.TrimPrefix(typ, "*")
	// Drop generic type arguments: "Store[T]" -> "Store".
	if i := strings.IndexByte(typ, '['); i >= 0 {
		typ = typ[:i]
	}
	return typ
}

func (e *goExtractor) extractTypeDeclaration(node *tree_sitter.Node, source []byte) []unit {
	var result []unit

	// type_declaration contains one or more type_spec children.
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "type_spec" {
			continue
		}
		if u := namedUnit(child, source, unitType); u != nil {
			// Report the whole declaration's span and text.
			u.startLine = int(node.StartPosition().Row) + 1
			u.endLine = int(node.EndPosition().Row) + 1
			u.text = node.Utf8Text(source)
			result = append(result, *u)
		}
	}
	return result
}

func (e *goExtractor) extractImport(node *tree_sitter.Node, source []byte) *importRef {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		// Fall back to finding an interpreted_string_literal child.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return nil
	}

	importPath := strings.Trim(pathNode.Utf8Text(source), "\"")
	if importPath == "" {
		return nil
	}
	return &importRef{
		path: importPath,
		line: int(node.StartPosition().Row) + 1,
	}
}

// namedUnit extracts a unit from a node that has a "name" field child.
func namedUnit(node *tree_sitter.Node, source []byte, kind unitKind) *unit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	return &unit{
		kind:      kind,
		name:      nameNode.Utf8Text(source),
		startLine: int(node.StartPosition().Row) + 1,
		endLine:   int(node.EndPosition().Row) + 1,
		text:      node.Utf8Text(source),
	}
}
