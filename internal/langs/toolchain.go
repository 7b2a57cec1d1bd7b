// Package langs defines language toolchains: per-language syntax checking,
// static analysis, and formatting capabilities behind small interfaces, plus a
// registry that resolves toolchains by name or file extension.
package langs

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Diagnostic is a single static-analysis finding. Line and Col are 1-based.
type Diagnostic struct {
	Line    int
	Col     int
	Message string
}

// String renders the diagnostic in the conventional line:col form.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Col, d.Message)
}

// SyntaxError describes the first point at which source text stops being
// parseable. Line and Col are 1-based; zero values mean the position is
// unknown.
type SyntaxError struct {
	Line   int
	Col    int
	Detail string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Col, e.Detail)
	}
	return e.Detail
}

// SyntaxChecker reports whether source text parses. A *SyntaxError return
// means the source is invalid; any other error means the check itself could
// not run.
type SyntaxChecker interface {
	Check(ctx context.Context, source string) error
}

// Analyzer inspects parseable source text and returns findings in source
// order. An error return means the analysis could not run, not that the
// source has issues.
type Analyzer interface {
	Analyze(ctx context.Context, source string) ([]Diagnostic, error)
}

// Formatter rewrites source text into canonical form. Implementations must be
// idempotent on their own output and must return an error rather than mangle
// input they cannot parse.
type Formatter interface {
	Format(source string) (string, error)
}

// Toolchain bundles the capabilities known for one language. Checker is
// always present; Analyzer and Formatter are nil when the capability is
// unavailable, which callers treat as a degraded mode rather than an error.
type Toolchain struct {
	Name          string
	Label         string
	Extensions    []string
	CommentPrefix string
	Checker       SyntaxChecker
	Analyzer      Analyzer
	Formatter     Formatter
}

// CanAnalyze reports whether static analysis is available.
func (t *Toolchain) CanAnalyze() bool {
	return t.Analyzer != nil
}

// CanFormat reports whether formatting is available.
func (t *Toolchain) CanFormat() bool {
	return t.Formatter != nil
}

// Registry maps language names and file extensions to toolchains.
type Registry struct {
	byName      map[string]*Toolchain
	byExtension map[string]*Toolchain
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:      map[string]*Toolchain{},
		byExtension: map[string]*Toolchain{},
	}
}

// Register adds a toolchain under its name and extensions, replacing any
// previous entries.
func (r *Registry) Register(toolchain *Toolchain) {
	r.byName[strings.ToLower(toolchain.Name)] = toolchain
	for _, extension := range toolchain.Extensions {
		r.byExtension[strings.ToLower(extension)] = toolchain
	}
}

// Lookup resolves a toolchain by case-insensitive language name.
func (r *Registry) Lookup(name string) (*Toolchain, bool) {
	toolchain, found := r.byName[strings.ToLower(name)]
	return toolchain, found
}

// ByExtension resolves a toolchain from a file extension, with or without the
// leading dot.
func (r *Registry) ByExtension(extension string) (*Toolchain, bool) {
	normalized := strings.ToLower(extension)
	if normalized != "" && !strings.HasPrefix(normalized, ".") {
		normalized = "." + normalized
	}
	toolchain, found := r.byExtension[normalized]
	return toolchain, found
}

// Names returns the registered language names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
