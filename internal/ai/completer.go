package ai

import (
	"context"
	"errors"
	"strings"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 1800
)

// Result is the outcome of one completion: either Text or Err is meaningful.
type Result struct {
	Text      string
	Err       error
	RequestID string
	Usage     Usage
}

// OK reports whether the completion succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Completer issues exactly one request per prompt against a Runtime.
type Completer struct {
	rt        Runtime
	model     string
	maxTokens int
}

func NewCompleter(rt Runtime, model string, maxTokens int) *Completer {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Completer{rt: rt, model: model, maxTokens: maxTokens}
}

func (c *Completer) Model() string { return c.model }

// Complete sends prompt as a single system message. Failures are carried in
// Result.Err; Complete never panics on provider errors.
func (c *Completer) Complete(ctx context.Context, prompt string) Result {
	if c == nil || c.rt == nil {
		return Result{Err: errors.New("no completion runtime configured")}
	}
	resp, err := c.rt.Generate(ctx, GenerateRequest{
		Model:     c.model,
		Messages:  []Message{{Role: "system", Content: prompt}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return Result{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Result{Err: ErrEmptyResponse}
	}
	return Result{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		RequestID: resp.RequestID,
		Usage:     resp.Usage,
	}
}
