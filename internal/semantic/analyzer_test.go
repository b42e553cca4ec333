package semantic

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findChange returns the first change matching type and target, or nil.
func findChange(changes []Change, ct ChangeType, target string) *Change {
	for i := range changes {
		if changes[i].Type == ct && changes[i].Target == target {
			return &changes[i]
		}
	}
	return nil
}

func analyze(t *testing.T, path, before, after string) *FileAnalysis {
	t.Helper()
	a := NewTreeSitterAnalyzer()
	analysis, err := a.Analyze(context.Background(), path, before, after)
	require.NoError(t, err)
	require.NotNil(t, analysis)
	return analysis
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestAnalyzer_Supported(t *testing.T) {
	a := NewTreeSitterAnalyzer()

	assert.True(t, a.Supported("main.go"))
	assert.True(t, a.Supported("src/App.tsx"))
	assert.True(t, a.Supported("lib/util.py"))
	assert.True(t, a.Supported("src/lib.rs"))
	assert.False(t, a.Supported("README.md"))
	assert.False(t, a.Supported("Makefile"))
}

func TestAnalyzer_RestrictedLanguages(t *testing.T) {
	a := NewTreeSitterAnalyzerFor(LangPython)

	assert.True(t, a.Supported("lib/util.py"))
	assert.False(t, a.Supported("main.go"))
	assert.False(t, a.Supported("src/App.tsx"))

	// A language outside the restriction degrades like any unsupported file.
	analysis, err := a.Analyze(context.Background(), "main.go", "", "package main\n\nfunc f() {}\n")
	require.NoError(t, err)
	assert.Empty(t, analysis.Changes)
}

func TestAnalyzer_RestrictedLanguagesIgnoresUnknownNames(t *testing.T) {
	a := NewTreeSitterAnalyzerFor(LangGo, Language("cobol"))

	assert.True(t, a.Supported("main.go"))
	assert.False(t, a.Supported("prog.cbl"))
}

func TestAnalyzer_UnsupportedYieldsEmptyAnalysis(t *testing.T) {
	analysis := analyze(t, "notes.txt", "old text", "new text")
	assert.Equal(t, "notes.txt", analysis.FilePath)
	assert.Empty(t, analysis.Changes)
	assert.True(t, analysis.AdditiveOnly(), "empty analysis is vacuously additive")
}

// ---------------------------------------------------------------------------
// Go
// ---------------------------------------------------------------------------

const goBefore = `package app

import "fmt"

func Greet() {
	fmt.Println("hi")
}

type Config struct {
	Name string
}

func (c *Config) Validate() error {
	return nil
}
`

func TestAnalyzer_Go_AddImportAndFunction(t *testing.T) {
	after := `package app

import (
	"fmt"
	"os"
)

func Greet() {
	fmt.Println("hi")
}

func Exit() {
	os.Exit(1)
}

type Config struct {
	Name string
}

func (c *Config) Validate() error {
	return nil
}
`
	analysis := analyze(t, "app.go", goBefore, after)

	imp := findChange(analysis.Changes, ChangeAddImport, "os")
	require.NotNil(t, imp, "changes: %+v", analysis.Changes)
	assert.Equal(t, LocationFileTop, imp.Location)

	fn := findChange(analysis.Changes, ChangeAddFunction, "Exit")
	require.NotNil(t, fn)
	assert.Equal(t, FunctionLocation("Exit"), fn.Location)
	assert.Contains(t, fn.ContentAfter, "os.Exit(1)")
	assert.Greater(t, fn.StartLine, 0)
	assert.GreaterOrEqual(t, fn.EndLine, fn.StartLine)

	assert.True(t, analysis.AdditiveOnly())
}

func TestAnalyzer_Go_ModifyFunctionBody(t *testing.T) {
	after := `package app

import "fmt"

func Greet() {
	fmt.Println("hello there")
}

type Config struct {
	Name string
}

func (c *Config) Validate() error {
	return nil
}
`
	analysis := analyze(t, "app.go", goBefore, after)
	require.Len(t, analysis.Changes, 1)

	mod := analysis.Changes[0]
	assert.Equal(t, ChangeModifyFunction, mod.Type)
	assert.Equal(t, "Greet", mod.Target)
	assert.Equal(t, FunctionLocation("Greet"), mod.Location)
	assert.Contains(t, mod.ContentAfter, "hello there")
	assert.False(t, analysis.AdditiveOnly())
}

func TestAnalyzer_Go_RemoveFunction(t *testing.T) {
	after := `package app

import "fmt"

func Greet() {
	fmt.Println("hi")
}

type Config struct {
	Name string
}
`
	analysis := analyze(t, "app.go", goBefore, after)

	rm := findChange(analysis.Changes, ChangeRemoveFunction, "Config.Validate")
	require.NotNil(t, rm)
	assert.Equal(t, FunctionLocation("Config.Validate"), rm.Location)
	assert.Empty(t, rm.ContentAfter)
	assert.False(t, analysis.AdditiveOnly())
}

func TestAnalyzer_Go_MethodDistinctFromFunction(t *testing.T) {
	before := `package app

func Validate() error { return nil }
`
	after := `package app

func Validate() error { return nil }

type Config struct{}

func (c *Config) Validate() error { return nil }
`
	analysis := analyze(t, "app.go", before, after)

	assert.NotNil(t, findChange(analysis.Changes, ChangeAddType, "Config"))
	assert.NotNil(t, findChange(analysis.Changes, ChangeAddFunction, "Config.Validate"))
	// The free function Validate is untouched.
	assert.Nil(t, findChange(analysis.Changes, ChangeModifyFunction, "Validate"))
}

func TestAnalyzer_Go_FreshBaseline(t *testing.T) {
	analysis := analyze(t, "app.go", "", goBefore)

	assert.NotNil(t, findChange(analysis.Changes, ChangeAddImport, "fmt"))
	assert.NotNil(t, findChange(analysis.Changes, ChangeAddFunction, "Greet"))
	assert.NotNil(t, findChange(analysis.Changes, ChangeAddFunction, "Config.Validate"))
	assert.NotNil(t, findChange(analysis.Changes, ChangeAddType, "Config"))
}

func TestAnalyzer_Go_IdenticalVersionsYieldNoChanges(t *testing.T) {
	analysis := analyze(t, "app.go", goBefore, goBefore)
	assert.Empty(t, analysis.Changes)
}

// ---------------------------------------------------------------------------
// Python
// ---------------------------------------------------------------------------

func TestAnalyzer_Python_AddFunctionAndImport(t *testing.T) {
	before := "def f(): pass\n"
	after := "import os\n\ndef f(): pass\n\ndef g():\n    return os.getcwd()\n"

	analysis := analyze(t, "app.py", before, after)

	assert.NotNil(t, findChange(analysis.Changes, ChangeAddImport, "os"))
	fn := findChange(analysis.Changes, ChangeAddFunction, "g")
	require.NotNil(t, fn)
	assert.Contains(t, fn.ContentAfter, "os.getcwd()")
	assert.True(t, analysis.AdditiveOnly())
}

func TestAnalyzer_Python_ClassMethods(t *testing.T) {
	before := "class Store:\n    def get(self):\n        return None\n"
	after := "class Store:\n    def get(self):\n        return self.data\n"

	analysis := analyze(t, "store.py", before, after)

	mod := findChange(analysis.Changes, ChangeModifyFunction, "Store.get")
	require.NotNil(t, mod, "changes: %+v", analysis.Changes)
	assert.Equal(t, FunctionLocation("Store.get"), mod.Location)
}

func TestAnalyzer_Python_FromImport(t *testing.T) {
	before := "def f(): pass\n"
	after := "from pathlib import Path\n\ndef f(): pass\n"

	analysis := analyze(t, "app.py", before, after)
	require.Len(t, analysis.Changes, 1)
	assert.Equal(t, ChangeAddImport, analysis.Changes[0].Type)
	assert.Contains(t, analysis.Changes[0].Target, "pathlib")
}

// ---------------------------------------------------------------------------
// TypeScript / TSX
// ---------------------------------------------------------------------------

func TestAnalyzer_TypeScript_HookCallAdded(t *testing.T) {
	before := `function Counter() {
  const count = 0;
  return count;
}
`
	after := `function Counter() {
  const [count, setCount] = useState(0);
  useEffect(() => {}, []);
  return count;
}
`
	analysis := analyze(t, "Counter.ts", before, after)

	state := findChange(analysis.Changes, ChangeAddHookCall, "useState")
	require.NotNil(t, state, "changes: %+v", analysis.Changes)
	assert.Equal(t, FunctionLocation("Counter"), state.Location)

	effect := findChange(analysis.Changes, ChangeAddHookCall, "useEffect")
	require.NotNil(t, effect)
	assert.Equal(t, FunctionLocation("Counter"), effect.Location)

	// Both hooks are additive yet share a location: they overlap.
	assert.True(t, state.Additive())
	assert.True(t, state.Overlaps(*effect))
}

func TestAnalyzer_TypeScript_ArrowFunctionAdded(t *testing.T) {
	before := `const a = 1;
`
	after := `const a = 1;
const double = (x: number) => x * 2;
`
	analysis := analyze(t, "util.ts", before, after)

	fn := findChange(analysis.Changes, ChangeAddFunction, "double")
	require.NotNil(t, fn)
	assert.Contains(t, fn.ContentAfter, "x * 2")
}

func TestAnalyzer_TypeScript_ImportAdded(t *testing.T) {
	before := "export function App() { return null; }\n"
	after := "import { render } from 'preact';\n\nexport function App() { return null; }\n"

	analysis := analyze(t, "App.ts", before, after)

	imp := findChange(analysis.Changes, ChangeAddImport, "preact")
	require.NotNil(t, imp)
	assert.Equal(t, LocationFileTop, imp.Location)
}

// ---------------------------------------------------------------------------
// Rust
// ---------------------------------------------------------------------------

func TestAnalyzer_Rust_AddUseAndFunction(t *testing.T) {
	before := "fn main() {}\n"
	after := "use std::fs;\n\nfn main() {}\n\nfn read() -> String {\n    fs::read_to_string(\"x\").unwrap()\n}\n"

	analysis := analyze(t, "main.rs", before, after)

	assert.NotNil(t, findChange(analysis.Changes, ChangeAddImport, "std::fs"))
	assert.NotNil(t, findChange(analysis.Changes, ChangeAddFunction, "read"))
}

func TestAnalyzer_Rust_ImplMethods(t *testing.T) {
	before := "struct Config;\n\nimpl Config {\n    fn load() -> Self { Config }\n}\n"
	after := "struct Config;\n\nimpl Config {\n    fn load() -> Self { Config }\n    fn save(&self) {}\n}\n"

	analysis := analyze(t, "config.rs", before, after)

	fn := findChange(analysis.Changes, ChangeAddFunction, "Config.save")
	require.NotNil(t, fn, "changes: %+v", analysis.Changes)
}

// ---------------------------------------------------------------------------
// Robustness
// ---------------------------------------------------------------------------

func TestAnalyzer_InvalidSourceDegrades(t *testing.T) {
	// Tree-sitter recovers what it can from broken input; the analyzer must
	// not error out.
	analysis := analyze(t, "bad.go", "package app\n", "package app\n\nfunc Broken( {{{\n")
	assert.NotNil(t, analysis)
}

func TestAnalyzer_ManyDefinitionsBounded(t *testing.T) {
	var before, after string
	before = "package big\n"
	after = "package big\n"
	for i := 0; i < 2000; i++ {
		fn := "func F" + strconv.Itoa(i) + "() {}\n"
		before += fn
		after += fn
	}
	after += "func Extra() {}\n"

	analysis := analyze(t, "big.go", before, after)
	require.Len(t, analysis.Changes, 1)
	assert.Equal(t, "Extra", analysis.Changes[0].Target)
}
