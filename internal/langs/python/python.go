// Package python provides the Python toolchain: syntax checking over the
// tree-sitter grammar and a module-level lint pass in the style of pyflakes.
// Python has no formatter capability here, so formatting degrades to a
// pass-through upstream.
package python

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"codetune/internal/langs"
)

const (
	languageName  = "python"
	languageLabel = "Python"
	commentPrefix = "#"

	errorNodeType = "ERROR"

	unusedImportMessageFormat      = "'%s' imported but unused"
	redefinitionMessageFormat      = "redefinition of unused '%s' from line %d"
	duplicateArgumentMessageFormat = "duplicate argument '%s' in function definition"
	returnOutsideFunctionMessage   = "'return' outside function"
)

// NewToolchain returns the Python toolchain. The analyzer capability is
// always present; the formatter capability is absent.
func NewToolchain() *langs.Toolchain {
	return &langs.Toolchain{
		Name:          languageName,
		Label:         languageLabel,
		Extensions:    []string{".py", ".pyw"},
		CommentPrefix: commentPrefix,
		Checker:       checker{},
		Analyzer:      analyzer{},
	}
}

func parse(ctx context.Context, source string) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tspython.GetLanguage())
	tree, parseErr := parser.ParseCtx(ctx, nil, []byte(source))
	if parseErr != nil {
		return nil, fmt.Errorf("parse python source: %w", parseErr)
	}
	return tree, nil
}

type checker struct{}

// Check parses the source and reports the first unparseable region as a
// *langs.SyntaxError with its 1-based position.
func (checker) Check(ctx context.Context, source string) error {
	tree, parseErr := parse(ctx, source)
	if parseErr != nil {
		return parseErr
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	offending := firstErrorNode(root)
	if offending == nil {
		return &langs.SyntaxError{Detail: "invalid syntax"}
	}
	detail := "invalid syntax"
	if offending.IsMissing() {
		detail = "missing " + offending.Type()
	}
	return &langs.SyntaxError{
		Line:   int(offending.StartPoint().Row) + 1,
		Col:    int(offending.StartPoint().Column) + 1,
		Detail: detail,
	}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == errorNodeType || node.IsMissing() {
		return node
	}
	for childIndex := 0; childIndex < int(node.ChildCount()); childIndex++ {
		if found := firstErrorNode(node.Child(childIndex)); found != nil {
			return found
		}
	}
	return nil
}

type analyzer struct{}

// Analyze runs the lint checks: unused imports, redefinition of an unused
// module-level name, duplicate function arguments, and return statements
// outside any function. Findings come back sorted by position.
func (analyzer) Analyze(ctx context.Context, source string) ([]langs.Diagnostic, error) {
	tree, parseErr := parse(ctx, source)
	if parseErr != nil {
		return nil, parseErr
	}
	defer tree.Close()

	sourceBytes := []byte(source)
	root := tree.RootNode()

	bindings := collectModuleBindings(root, sourceBytes)
	usage := collectUsage(root, sourceBytes)

	diagnostics := usage.diagnostics
	diagnostics = append(diagnostics, unusedImportFindings(bindings, usage)...)
	diagnostics = append(diagnostics, redefinitionFindings(bindings, usage)...)

	sort.SliceStable(diagnostics, func(left, right int) bool {
		if diagnostics[left].Line != diagnostics[right].Line {
			return diagnostics[left].Line < diagnostics[right].Line
		}
		return diagnostics[left].Col < diagnostics[right].Col
	})
	return diagnostics, nil
}

// binding is a module-level name introduced by an import or a definition.
type binding struct {
	name     string
	display  string
	line     int
	col      int
	isImport bool
}

func collectModuleBindings(root *sitter.Node, source []byte) []binding {
	var bindings []binding
	for childIndex := 0; childIndex < int(root.NamedChildCount()); childIndex++ {
		statement := root.NamedChild(childIndex)
		switch statement.Type() {
		case "import_statement":
			bindings = append(bindings, importBindings(statement, source)...)
		case "import_from_statement":
			bindings = append(bindings, importFromBindings(statement, source)...)
		case "function_definition", "class_definition":
			bindings = appendDefinitionBinding(bindings, statement, source)
		case "decorated_definition":
			if definition := statement.ChildByFieldName("definition"); definition != nil {
				bindings = appendDefinitionBinding(bindings, definition, source)
			}
		}
	}
	return bindings
}

func appendDefinitionBinding(bindings []binding, definition *sitter.Node, source []byte) []binding {
	nameNode := definition.ChildByFieldName("name")
	if nameNode == nil {
		return bindings
	}
	name := nameNode.Content(source)
	return append(bindings, binding{
		name:    name,
		display: name,
		line:    int(definition.StartPoint().Row) + 1,
		col:     int(definition.StartPoint().Column) + 1,
	})
}

// importBindings handles "import a.b, c as d": a dotted import binds its
// first segment, an aliased import binds the alias.
func importBindings(statement *sitter.Node, source []byte) []binding {
	line := int(statement.StartPoint().Row) + 1
	col := int(statement.StartPoint().Column) + 1

	var bindings []binding
	for childIndex := 0; childIndex < int(statement.NamedChildCount()); childIndex++ {
		child := statement.NamedChild(childIndex)
		switch child.Type() {
		case "dotted_name":
			dotted := child.Content(source)
			bindings = append(bindings, binding{
				name:     firstSegment(dotted),
				display:  dotted,
				line:     line,
				col:      col,
				isImport: true,
			})
		case "aliased_import":
			if aliased, ok := aliasedBinding(child, "", source, line, col); ok {
				bindings = append(bindings, aliased)
			}
		}
	}
	return bindings
}

// importFromBindings handles "from m import x, y as z": every imported name
// binds directly, wildcard imports bind nothing.
func importFromBindings(statement *sitter.Node, source []byte) []binding {
	line := int(statement.StartPoint().Row) + 1
	col := int(statement.StartPoint().Column) + 1

	moduleName := ""
	moduleNode := statement.ChildByFieldName("module_name")
	if moduleNode != nil {
		moduleName = moduleNode.Content(source)
	}
	// Future imports alter compilation and count as used by definition.
	if moduleName == "__future__" {
		return nil
	}

	var bindings []binding
	for childIndex := 0; childIndex < int(statement.NamedChildCount()); childIndex++ {
		child := statement.NamedChild(childIndex)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			name := child.Content(source)
			bindings = append(bindings, binding{
				name:     name,
				display:  joinModulePath(moduleName, name),
				line:     line,
				col:      col,
				isImport: true,
			})
		case "aliased_import":
			if aliased, ok := aliasedBinding(child, moduleName, source, line, col); ok {
				bindings = append(bindings, aliased)
			}
		}
	}
	return bindings
}

func aliasedBinding(aliasedImport *sitter.Node, moduleName string, source []byte, line int, col int) (binding, bool) {
	nameNode := aliasedImport.ChildByFieldName("name")
	aliasNode := aliasedImport.ChildByFieldName("alias")
	if nameNode == nil || aliasNode == nil {
		return binding{}, false
	}
	imported := nameNode.Content(source)
	alias := aliasNode.Content(source)
	display := imported + " as " + alias
	if moduleName != "" {
		display = joinModulePath(moduleName, imported) + " as " + alias
	}
	return binding{
		name:     alias,
		display:  display,
		line:     line,
		col:      col,
		isImport: true,
	}, true
}

func joinModulePath(moduleName string, importedName string) string {
	if moduleName == "" {
		return importedName
	}
	return strings.TrimSuffix(moduleName, ".") + "." + importedName
}

func firstSegment(dottedName string) string {
	if dotIndex := strings.IndexByte(dottedName, '.'); dotIndex >= 0 {
		return dottedName[:dotIndex]
	}
	return dottedName
}

// usageScan holds identifier references by name plus the findings the walk
// produces directly (duplicate arguments, stray returns).
type usageScan struct {
	referenceLines map[string][]int
	diagnostics    []langs.Diagnostic
}

// usedBetween reports whether name is referenced on any line in
// [fromLine, upToLine]; upToLine <= 0 means no upper bound. Import statements
// never contribute references, so an import's own identifiers cannot satisfy
// the check for their own binding line.
func (u usageScan) usedBetween(name string, fromLine int, upToLine int) bool {
	for _, referenceLine := range u.referenceLines[name] {
		if referenceLine >= fromLine && (upToLine <= 0 || referenceLine <= upToLine) {
			return true
		}
	}
	return false
}

func collectUsage(root *sitter.Node, source []byte) usageScan {
	scan := usageScan{referenceLines: map[string][]int{}}

	// Byte offsets of identifier nodes that introduce names rather than
	// reference them: def/class names and attribute selectors.
	skippedOffsets := map[uint32]bool{}

	var walk func(node *sitter.Node, functionDepth int)
	walk = func(node *sitter.Node, functionDepth int) {
		switch node.Type() {
		case "import_statement", "import_from_statement":
			return
		case "function_definition", "class_definition":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				skippedOffsets[nameNode.StartByte()] = true
			}
			if node.Type() == "function_definition" {
				scan.diagnostics = append(scan.diagnostics, duplicateArgumentFindings(node, source)...)
				functionDepth++
			}
		case "attribute":
			if attributeNode := node.ChildByFieldName("attribute"); attributeNode != nil {
				skippedOffsets[attributeNode.StartByte()] = true
			}
		case "return_statement":
			if functionDepth == 0 {
				scan.diagnostics = append(scan.diagnostics, langs.Diagnostic{
					Line:    int(node.StartPoint().Row) + 1,
					Col:     int(node.StartPoint().Column) + 1,
					Message: returnOutsideFunctionMessage,
				})
			}
		case "identifier":
			if !skippedOffsets[node.StartByte()] {
				name := node.Content(source)
				scan.referenceLines[name] = append(scan.referenceLines[name], int(node.StartPoint().Row)+1)
			}
		}

		for childIndex := 0; childIndex < int(node.ChildCount()); childIndex++ {
			walk(node.Child(childIndex), functionDepth)
		}
	}
	walk(root, 0)
	return scan
}

func duplicateArgumentFindings(functionDefinition *sitter.Node, source []byte) []langs.Diagnostic {
	parameters := functionDefinition.ChildByFieldName("parameters")
	if parameters == nil {
		return nil
	}

	var diagnostics []langs.Diagnostic
	seen := map[string]bool{}
	reported := map[string]bool{}
	for childIndex := 0; childIndex < int(parameters.NamedChildCount()); childIndex++ {
		name := parameterName(parameters.NamedChild(childIndex), source)
		if name == "" {
			continue
		}
		if seen[name] && !reported[name] {
			reported[name] = true
			diagnostics = append(diagnostics, langs.Diagnostic{
				Line:    int(functionDefinition.StartPoint().Row) + 1,
				Col:     int(functionDefinition.StartPoint().Column) + 1,
				Message: fmt.Sprintf(duplicateArgumentMessageFormat, name),
			})
		}
		seen[name] = true
	}
	return diagnostics
}

func parameterName(parameter *sitter.Node, source []byte) string {
	if parameter.Type() == "identifier" {
		return parameter.Content(source)
	}
	if nameNode := parameter.ChildByFieldName("name"); nameNode != nil && nameNode.Type() == "identifier" {
		return nameNode.Content(source)
	}
	for childIndex := 0; childIndex < int(parameter.NamedChildCount()); childIndex++ {
		child := parameter.NamedChild(childIndex)
		if child.Type() == "identifier" {
			return child.Content(source)
		}
	}
	return ""
}

// unusedImportFindings reports imports never referenced while their binding
// was live, from the import's own line until a later statement rebinds the
// same name. A reference on the import line itself counts: one-liners such as
// "import pdb; pdb.set_trace()" use their import.
func unusedImportFindings(bindings []binding, usage usageScan) []langs.Diagnostic {
	var diagnostics []langs.Diagnostic
	for bindingIndex, current := range bindings {
		if !current.isImport {
			continue
		}
		shadowLine := 0
		for _, later := range bindings[bindingIndex+1:] {
			if later.name == current.name {
				shadowLine = later.line
				break
			}
		}
		if usage.usedBetween(current.name, current.line, shadowLine) {
			continue
		}
		diagnostics = append(diagnostics, langs.Diagnostic{
			Line:    current.line,
			Col:     current.col,
			Message: fmt.Sprintf(unusedImportMessageFormat, current.display),
		})
	}
	return diagnostics
}

func redefinitionFindings(bindings []binding, usage usageScan) []langs.Diagnostic {
	var diagnostics []langs.Diagnostic
	lastSeen := map[string]binding{}
	for _, current := range bindings {
		previous, exists := lastSeen[current.name]
		if exists && !usage.usedBetween(current.name, previous.line+1, current.line) {
			diagnostics = append(diagnostics, langs.Diagnostic{
				Line:    current.line,
				Col:     current.col,
				Message: fmt.Sprintf(redefinitionMessageFormat, current.name, previous.line),
			})
		}
		lastSeen[current.name] = current
	}
	return diagnostics
}
