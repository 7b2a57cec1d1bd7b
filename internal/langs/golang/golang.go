// Package golang provides the Go toolchain. Syntax checking and analysis run
// on go/parser and go/ast, formatting on go/format, so all three capabilities
// are present.
package golang

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/scanner"
	"go/token"
	"sort"
	"strings"

	"codetune/internal/langs"
)

const (
	languageName  = "go"
	languageLabel = "Go"
	commentPrefix = "//"

	sourceFileName = "source.go"

	unusedImportMessageFormat   = "%q imported and not used"
	redeclaredMessageFormat     = "%s redeclared in this block (first declared at line %d)"
	selfAssignmentMessageFormat = "self-assignment of %s to %s"
)

// NewToolchain returns the Go toolchain with checker, analyzer, and formatter
// capabilities.
func NewToolchain() *langs.Toolchain {
	return &langs.Toolchain{
		Name:          languageName,
		Label:         languageLabel,
		Extensions:    []string{".go"},
		CommentPrefix: commentPrefix,
		Checker:       checker{},
		Analyzer:      analyzer{},
		Formatter:     formatter{},
	}
}

type checker struct{}

// Check parses the source with the standard Go parser and converts the first
// parse error into a *langs.SyntaxError carrying its position.
func (checker) Check(_ context.Context, source string) error {
	fileSet := token.NewFileSet()
	_, parseErr := parser.ParseFile(fileSet, sourceFileName, source, parser.AllErrors)
	if parseErr == nil {
		return nil
	}

	var errorList scanner.ErrorList
	if errors.As(parseErr, &errorList) && len(errorList) > 0 {
		first := errorList[0]
		return &langs.SyntaxError{
			Line:   first.Pos.Line,
			Col:    first.Pos.Column,
			Detail: first.Msg,
		}
	}
	return &langs.SyntaxError{Detail: parseErr.Error()}
}

type analyzer struct{}

// Analyze reports unused imports, duplicate top-level declarations, and
// self-assignments. Source that does not parse yields no findings; the syntax
// check owns that case.
func (analyzer) Analyze(_ context.Context, source string) ([]langs.Diagnostic, error) {
	fileSet := token.NewFileSet()
	file, _ := parser.ParseFile(fileSet, sourceFileName, source, parser.AllErrors)
	if file == nil {
		return nil, nil
	}

	var diagnostics []langs.Diagnostic
	diagnostics = append(diagnostics, unusedImportFindings(fileSet, file)...)
	diagnostics = append(diagnostics, redeclarationFindings(fileSet, file)...)
	diagnostics = append(diagnostics, selfAssignmentFindings(fileSet, file)...)

	sort.SliceStable(diagnostics, func(left, right int) bool {
		if diagnostics[left].Line != diagnostics[right].Line {
			return diagnostics[left].Line < diagnostics[right].Line
		}
		return diagnostics[left].Col < diagnostics[right].Col
	})
	return diagnostics, nil
}

func diagnosticAt(fileSet *token.FileSet, pos token.Pos, message string) langs.Diagnostic {
	position := fileSet.Position(pos)
	return langs.Diagnostic{Line: position.Line, Col: position.Column, Message: message}
}

// importedName resolves the identifier an import binds: the alias when
// present, otherwise the last path segment.
func importedName(importSpec *ast.ImportSpec) string {
	if importSpec.Name != nil {
		return importSpec.Name.Name
	}
	path := strings.Trim(importSpec.Path.Value, `"`)
	if slashIndex := strings.LastIndexByte(path, '/'); slashIndex >= 0 {
		return path[slashIndex+1:]
	}
	return path
}

func unusedImportFindings(fileSet *token.FileSet, file *ast.File) []langs.Diagnostic {
	usedNames := map[string]bool{}
	ast.Inspect(file, func(node ast.Node) bool {
		if genDecl, isGenDecl := node.(*ast.GenDecl); isGenDecl && genDecl.Tok == token.IMPORT {
			return false
		}
		if identifier, isIdentifier := node.(*ast.Ident); isIdentifier {
			usedNames[identifier.Name] = true
		}
		return true
	})

	var diagnostics []langs.Diagnostic
	for _, importSpec := range file.Imports {
		name := importedName(importSpec)
		if name == "_" || name == "." {
			continue
		}
		if usedNames[name] {
			continue
		}
		path := strings.Trim(importSpec.Path.Value, `"`)
		diagnostics = append(diagnostics, diagnosticAt(fileSet, importSpec.Pos(), fmt.Sprintf(unusedImportMessageFormat, path)))
	}
	return diagnostics
}

func redeclarationFindings(fileSet *token.FileSet, file *ast.File) []langs.Diagnostic {
	firstDeclarationLine := map[string]int{}
	var diagnostics []langs.Diagnostic

	recordName := func(name string, pos token.Pos) {
		if name == "_" || name == "init" {
			return
		}
		position := fileSet.Position(pos)
		if previousLine, seen := firstDeclarationLine[name]; seen {
			diagnostics = append(diagnostics, langs.Diagnostic{
				Line:    position.Line,
				Col:     position.Column,
				Message: fmt.Sprintf(redeclaredMessageFormat, name, previousLine),
			})
			return
		}
		firstDeclarationLine[name] = position.Line
	}

	for _, declaration := range file.Decls {
		switch typedDeclaration := declaration.(type) {
		case *ast.FuncDecl:
			if typedDeclaration.Recv == nil {
				recordName(typedDeclaration.Name.Name, typedDeclaration.Pos())
			}
		case *ast.GenDecl:
			for _, spec := range typedDeclaration.Specs {
				switch typedSpec := spec.(type) {
				case *ast.ValueSpec:
					for _, name := range typedSpec.Names {
						recordName(name.Name, name.Pos())
					}
				case *ast.TypeSpec:
					recordName(typedSpec.Name.Name, typedSpec.Pos())
				}
			}
		}
	}
	return diagnostics
}

func selfAssignmentFindings(fileSet *token.FileSet, file *ast.File) []langs.Diagnostic {
	var diagnostics []langs.Diagnostic
	ast.Inspect(file, func(node ast.Node) bool {
		assignment, isAssignment := node.(*ast.AssignStmt)
		if !isAssignment || assignment.Tok != token.ASSIGN || len(assignment.Lhs) != len(assignment.Rhs) {
			return true
		}
		for index := range assignment.Lhs {
			leftIdentifier, leftIsIdentifier := assignment.Lhs[index].(*ast.Ident)
			rightIdentifier, rightIsIdentifier := assignment.Rhs[index].(*ast.Ident)
			if !leftIsIdentifier || !rightIsIdentifier {
				continue
			}
			if leftIdentifier.Name == "_" || leftIdentifier.Name != rightIdentifier.Name {
				continue
			}
			diagnostics = append(diagnostics, diagnosticAt(fileSet, assignment.Pos(), fmt.Sprintf(selfAssignmentMessageFormat, leftIdentifier.Name, rightIdentifier.Name)))
		}
		return true
	})
	return diagnostics
}

type formatter struct{}

// Format runs the canonical Go formatter. The output is stable under
// repeated formatting; unparseable input returns an error untouched.
func (formatter) Format(source string) (string, error) {
	formatted, formatErr := format.Source([]byte(source))
	if formatErr != nil {
		return "", fmt.Errorf("format go source: %w", formatErr)
	}
	return string(formatted), nil
}
