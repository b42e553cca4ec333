package semantic

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// rsExtractor builds outlines from Rust source files.
type rsExtractor struct{}

func (e *rsExtractor) Extract(root *tree_sitter.Node, source []byte) outline {
	var o outline

	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor, source, &o, "")
	return o
}

// walk descends the tree carrying the enclosing impl type so associated
// functions can be named "Type.fn".
func (e *rsExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte, o *outline, implType string) {
	node := cursor.Node()
	next := implType

	switch node.Kind() {
	case "function_item":
		if u := namedUnit(node, source, unitFunction); u != nil {
			if implType != "" {
				u.name = implType + "." + u.name
			}
			o.units = append(o.units, *u)
		}

	case "struct_item", "enum_item", "trait_item", "type_item":
		if u := namedUnit(node, source, unitType); u != nil {
			o.units = append(o.units, *u)
		}

	case "impl_item":
		next = e.implTypeName(node, source)

	case "use_declaration":
		if imp := e.extractUse(node, source); imp != nil {
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

// implTypeName returns the base type name an impl block targets, e.g.
// "impl Display for Config" yields "Config".
func (e *rsExtractor) implTypeName(node *tree_sitter.Node, source []byte) string {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	name := typeNode.Utf8Text(source)
	// Drop generic arguments: "Store<T>" -> "Store".
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	return name
}

func (e *rsExtractor) extractUse(node *tree_sitter.Node, source []byte) *importRef {
	argNode := node.ChildByFieldName("argument")
	if argNode == nil {
		return nil
	}
	path := argNode.Utf8Text(source)
	if path == "" {
		return nil
	}
	return &importRef{
		path: path,
		line: int(node.StartPosition().Row) + 1,
	}
}
