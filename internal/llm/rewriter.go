package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	providerName = "Groq"

	contactErrorMessageFormat = "Error contacting %s: %v"

	rewriteSystemPromptFormat = "You are a helpful %s code optimiser. Modify the following code according to this user request: %q. Return only the modified code."
	adviseSystemPromptFormat  = "You are a %s code debugger. Analyze the following code and describe any potential issues or improvements."

	codeFenceMarker = "```"
)

// Temperature zero keeps rewrites as deterministic as the provider allows.
const deterministicTemperature = 0.0

// RewriterOptions carries everything a Rewriter needs. A nil Client means no
// credential is configured and both calls degrade: Rewrite becomes identity,
// Advise returns nothing.
type RewriterOptions struct {
	Client              *Client
	Model               string
	MaxCompletionTokens int
	LanguageLabel       string
	CommentPrefix       string
	Timeout             time.Duration
	Logger              *zap.Logger
}

// Rewriter exposes the two independent model calls the tool makes: rewriting
// code under an instruction and producing advisory commentary. Neither call
// ever fails; trouble is folded into the returned text.
type Rewriter struct {
	client              *Client
	model               string
	maxCompletionTokens int
	languageLabel       string
	commentPrefix       string
	timeout             time.Duration
	logger              *zap.Logger
}

// NewRewriter builds a Rewriter from options, substituting a no-op logger
// when none is given.
func NewRewriter(options RewriterOptions) *Rewriter {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{
		client:              options.Client,
		model:               options.Model,
		maxCompletionTokens: options.MaxCompletionTokens,
		languageLabel:       options.LanguageLabel,
		commentPrefix:       options.CommentPrefix,
		timeout:             options.Timeout,
		logger:              logger,
	}
}

// Enabled reports whether a credential-backed client is attached.
func (r *Rewriter) Enabled() bool {
	return r.client != nil
}

// Rewrite asks the model to modify code according to the instruction. Without
// a client the code comes back unchanged. On any call failure the original
// code comes back with a trailing comment describing the failure, so the
// input is always an exact prefix of the degraded output.
func (r *Rewriter) Rewrite(ctx context.Context, code string, instruction string) string {
	if r.client == nil {
		return code
	}

	content, completionErr := r.complete(ctx, fmt.Sprintf(rewriteSystemPromptFormat, r.languageLabel, instruction), code)
	if completionErr != nil {
		r.logger.Warn("rewrite degraded to pass-through",
			zap.String("model", r.model),
			zap.Error(completionErr))
		return code + "\n" + r.commentPrefix + " " + fmt.Sprintf(contactErrorMessageFormat, providerName, completionErr)
	}
	return stripCodeFence(content)
}

// Advise asks the model for commentary on the code. Without a client it
// returns the empty string, which report assembly drops; on failure it
// returns the contact-error line as the advisory text.
func (r *Rewriter) Advise(ctx context.Context, code string) string {
	if r.client == nil {
		return ""
	}

	content, completionErr := r.complete(ctx, fmt.Sprintf(adviseSystemPromptFormat, r.languageLabel), code)
	if completionErr != nil {
		r.logger.Warn("advisory degraded to error text",
			zap.String("model", r.model),
			zap.Error(completionErr))
		return fmt.Sprintf(contactErrorMessageFormat, providerName, completionErr)
	}
	return content
}

func (r *Rewriter) complete(ctx context.Context, systemPrompt string, userContent string) (string, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	temperature := deterministicTemperature
	return r.client.CreateChatCompletion(callCtx, ChatRequest{
		Model: r.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userContent},
		},
		Temperature:         &temperature,
		MaxCompletionTokens: r.maxCompletionTokens,
	})
}

// stripCodeFence unwraps a response the model wrapped in a markdown code
// fence despite being told not to. Anything else passes through untouched.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, codeFenceMarker) {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == codeFenceMarker {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
