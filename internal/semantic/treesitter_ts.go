package semantic

import (
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsExtractor builds outlines from TypeScript and TSX source files. It is
// the only extractor that records hook calls, since reactive hook APIs are a
// UI-component idiom.
type tsExtractor struct{}

func (e *tsExtractor) Extract(root *tree_sitter.Node, source []byte) outline {
	var o outline

	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor, source, &o, "")
	return o
}

// walk descends the tree carrying the name of the enclosing function (or
// class, for method naming) so hook calls and methods can be attributed.
func (e *tsExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte, o *outline, enclosing string) {
	node := cursor.Node()
	next := enclosing

	switch node.Kind() {
	case "function_declaration":
		if u := namedUnit(node, source, unitFunction); u != nil {
			o.units = append(o.units, *u)
			next = u.name
		}

	case "class_declaration":
		if u := namedUnit(node, source, unitType); u != nil {
			o.units = append(o.units, *u)
			next = u.name
		}

	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		if u := namedUnit(node, source, unitType); u != nil {
			o.units = append(o.units, *u)
		}

	case "method_definition":
		if u := e.extractMethod(node, source, enclosing); u != nil {
			o.units = append(o.units, *u)
			next = u.name
		}

	case "variable_declarator":
		if u := e.extractArrowFunction(node, source); u != nil {
			o.units = append(o.units, *u)
			next = u.name
		}

	case "import_statement":
		if imp := e.extractImport(node, source); imp != nil {
			o.imports = append(o.imports, *imp)
		}

	case "call_expression":
		if enclosing != "" {
			if call := e.extractHookCall(node, source); call != nil {
				o.addHook(enclosing, *call)
			}
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

// extractMethod names class methods "Class.method" so a method and a free
// function sharing a name stay distinct.
func (e *tsExtractor) extractMethod(node *tree_sitter.Node, source []byte, class string) *unit {
	u := namedUnit(node, source, unitFunction)
	if u == nil {
		return nil
	}
	if class != "" {
		u.name = class + "." + u.name
	}
	return u
}

// extractArrowFunction handles "const foo = () => { ... }" declarators.
func (e *tsExtractor) extractArrowFunction(node *tree_sitter.Node, source []byte) *unit {
	valueNode := node.ChildByFieldName("value")
	if valueNode == nil {
		return nil
	}
	if valueNode.Kind() != "arrow_function" && valueNode.Kind() != "function_expression" {
		return nil
	}
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	return &unit{
		kind:      unitFunction,
		name:      nameNode.Utf8Text(source),
		startLine: int(node.StartPosition().Row) + 1,
		endLine:   int(node.EndPosition().Row) + 1,
		text:      node.Utf8Text(source),
	}
}

func (e *tsExtractor) extractImport(node *tree_sitter.Node, source []byte) *importRef {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		// Fall back: look for a string child.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "string" {
				sourceNode = child
				break
			}
		}
	}
	if sourceNode == nil {
		return nil
	}

	importPath := strings.Trim(sourceNode.Utf8Text(source), "\"'`")
	if importPath == "" {
		return nil
	}
	return &importRef{
		path: importPath,
		line: int(node.StartPosition().Row) + 1,
	}
}

// extractHookCall matches direct calls to hook-style APIs: an identifier
// callee of the form useXxx.
func (e *tsExtractor) extractHookCall(node *tree_sitter.Node, source []byte) *hookCall {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil || fnNode.Kind() != "identifier" {
		return nil
	}
	callee := fnNode.Utf8Text(source)
	if !isHookName(callee) {
		return nil
	}
	return &hookCall{
		name: callee,
		line: int(node.StartPosition().Row) + 1,
	}
}

// isHookName reports whether name follows the useXxx hook convention.
func isHookName(name string) bool {
	if !strings.HasPrefix(name, "use") || len(name) < 4 {
		return false
	}
	return unicode.IsUpper(rune(name[3]))
}
