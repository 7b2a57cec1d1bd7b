// Package pipeline drives the fixed sequence: report, rewrite, format,
// re-report. No stage can abort the run; unavailable collaborators degrade to
// pass-through.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codetune/internal/report"
)

// Reporter produces a diagnostic report for source code.
type Reporter interface {
	Report(ctx context.Context, code string) report.Report
}

// Rewriter transforms code under an instruction, returning usable text even
// when the underlying service fails.
type Rewriter interface {
	Rewrite(ctx context.Context, code string, instruction string) string
}

// Formatter canonicalizes source text, erroring on input it cannot parse.
type Formatter interface {
	Format(source string) (string, error)
}

// Result is the complete pipeline outcome: the report on the input, the code
// after rewrite and formatting, and the report on that final code.
type Result struct {
	InitialReport report.Report
	OptimisedCode string
	FinalReport   report.Report
}

// Runner executes the pipeline. Run requires a Reporter; a nil Rewriter or
// Formatter turns its stage into the identity.
type Runner struct {
	Reporter  Reporter
	Rewriter  Rewriter
	Formatter Formatter
	Logger    *zap.Logger
}

// Run performs the four stages in order and always returns a complete
// Result. The initial and final reports are each produced exactly once.
func (r Runner) Run(ctx context.Context, code string, instruction string) Result {
	logger := r.runLogger()

	startedAt := time.Now()
	initialReport := r.Reporter.Report(ctx, code)
	logger.Debug("initial report built", zap.Duration("elapsed", time.Since(startedAt)))

	formatted := r.transform(ctx, logger, code, instruction)

	finalReport := r.Reporter.Report(ctx, formatted)
	logger.Debug("pipeline complete", zap.Duration("elapsed", time.Since(startedAt)))

	return Result{
		InitialReport: initialReport,
		OptimisedCode: formatted,
		FinalReport:   finalReport,
	}
}

// Transform runs only the rewrite and format stages and returns the resulting
// code. Entry points that do not present reports use this instead of Run.
func (r Runner) Transform(ctx context.Context, code string, instruction string) string {
	return r.transform(ctx, r.runLogger(), code, instruction)
}

func (r Runner) runLogger() *zap.Logger {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("run_id", uuid.NewString()))
}

func (r Runner) transform(ctx context.Context, logger *zap.Logger, code string, instruction string) string {
	rewritten := code
	if r.Rewriter != nil {
		rewriteStartedAt := time.Now()
		rewritten = r.Rewriter.Rewrite(ctx, code, instruction)
		logger.Debug("rewrite stage complete",
			zap.Bool("changed", rewritten != code),
			zap.Duration("elapsed", time.Since(rewriteStartedAt)))
	}

	formatted := rewritten
	if r.Formatter != nil {
		formattedCandidate, formatErr := r.Formatter.Format(rewritten)
		if formatErr != nil {
			logger.Warn("format degraded to pass-through", zap.Error(formatErr))
		} else {
			formatted = formattedCandidate
		}
	}
	return formatted
}
