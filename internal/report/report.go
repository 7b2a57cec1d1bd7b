// Package report assembles diagnostic reports: a syntax verdict, a static
// analysis block, and optional model commentary. Reports are plain text and
// never empty; failures in any collaborator become report content instead of
// errors.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codetune/internal/langs"
)

const (
	syntaxOKLine                   = "No syntax errors detected."
	syntaxErrorPrefix              = "Syntax error: "
	syntaxCheckFailedMessageFormat = "Syntax check failed: %v"
	lintCleanLine                  = "Lint: no issues found."
	lintIssuesHeading              = "Lint issues:"
	lintUnavailableLine            = "Static analysis not available; skipping."
	lintFailedMessageFormat        = "Static analysis failed: %v"
)

// Report is an ordered sequence of text blocks. A block may span multiple
// lines; String joins blocks with single newlines.
type Report struct {
	Blocks []string
}

func (r Report) String() string {
	return strings.Join(r.Blocks, "\n")
}

// Advisor produces free-text commentary on source code. Implementations never
// fail; degraded results come back as text.
type Advisor interface {
	Advise(ctx context.Context, code string) string
}

// Reporter builds reports from a required syntax checker, an optional
// analyzer, and an optional advisor. Nil analyzer means the capability is
// absent; nil advisor means no commentary block is produced.
type Reporter struct {
	checker  langs.SyntaxChecker
	analyzer langs.Analyzer
	advisor  Advisor
}

// NewReporter wires a reporter. Only checker is required.
func NewReporter(checker langs.SyntaxChecker, analyzer langs.Analyzer, advisor Advisor) *Reporter {
	return &Reporter{checker: checker, analyzer: analyzer, advisor: advisor}
}

// Report runs the configured checks against the code. The first block states
// the syntax verdict, the second the static analysis outcome, and when an
// advisor is attached its non-empty commentary forms the final block.
func (r *Reporter) Report(ctx context.Context, code string) Report {
	var blocks []string
	blocks = appendNonEmpty(blocks, r.syntaxBlock(ctx, code))
	blocks = appendNonEmpty(blocks, r.analysisBlock(ctx, code))
	if r.advisor != nil {
		blocks = appendNonEmpty(blocks, r.advisor.Advise(ctx, code))
	}
	return Report{Blocks: blocks}
}

// syntaxBlock renders the syntax verdict. A *langs.SyntaxError is a verdict
// about the code; any other checker error means the check itself could not run
// and is labeled accordingly.
func (r *Reporter) syntaxBlock(ctx context.Context, code string) string {
	checkErr := r.checker.Check(ctx, code)
	if checkErr == nil {
		return syntaxOKLine
	}
	var syntaxErr *langs.SyntaxError
	if errors.As(checkErr, &syntaxErr) {
		return syntaxErrorPrefix + syntaxErr.Error()
	}
	return fmt.Sprintf(syntaxCheckFailedMessageFormat, checkErr)
}

func (r *Reporter) analysisBlock(ctx context.Context, code string) string {
	if r.analyzer == nil {
		return lintUnavailableLine
	}
	diagnostics, analyzeErr := r.analyzer.Analyze(ctx, code)
	if analyzeErr != nil {
		return fmt.Sprintf(lintFailedMessageFormat, analyzeErr)
	}
	if len(diagnostics) == 0 {
		return lintCleanLine
	}

	lines := make([]string, 0, len(diagnostics)+1)
	lines = append(lines, lintIssuesHeading)
	for _, diagnostic := range diagnostics {
		lines = append(lines, diagnostic.String())
	}
	return strings.Join(lines, "\n")
}

func appendNonEmpty(blocks []string, block string) []string {
	if block == "" {
		return blocks
	}
	return append(blocks, block)
}
