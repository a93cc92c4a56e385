package render

import (
	"context"
	"strings"
	"unicode"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
)

// Kind classifies a model response.
type Kind string

const (
	KindProse Kind = "prose"
	KindCode  Kind = "code"
)

// CodeFence is the only prefix that marks a response as executable.
const CodeFence = "```python"

// Classify returns KindCode iff the trimmed response starts with CodeFence.
func Classify(response string) Kind {
	if strings.HasPrefix(strings.TrimSpace(response), CodeFence) {
		return KindCode
	}
	return KindProse
}

// ExtractCode returns the body of the first fenced block. The language tag
// after the opening fence is dropped, but code on the same line is kept. The
// body ends at the first closing fence, wherever it appears. A block with no
// closing fence runs to the end.
func ExtractCode(response string) string {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	// Drop the language tag.
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		s = s[i:]
	} else {
		s = ""
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Output is what a single assistant turn displays.
type Output struct {
	Kind   Kind   `json:"kind"`
	Prose  string `json:"prose,omitempty"`
	Code   string `json:"code,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Fault  string `json:"fault,omitempty"`
	Image  []byte `json:"image,omitempty"`
}

// HasFault reports whether execution failed.
func (o Output) HasFault() bool { return o.Fault != "" }

// Renderer turns raw model responses into Outputs.
type Renderer struct {
	exec Executor
}

func NewRenderer(exec Executor) *Renderer {
	return &Renderer{exec: exec}
}

// Render classifies response and executes it when it is code. Prose is
// returned verbatim and never executed.
func (r *Renderer) Render(ctx context.Context, response string, ds *dataset.Dataset) Output {
	if Classify(response) != KindCode {
		return Output{Kind: KindProse, Prose: response}
	}
	out := Output{Kind: KindCode, Code: ExtractCode(response)}
	if out.Code == "" {
		out.Fault = "Code Error: the response contained an empty code block"
		return out
	}
	if r == nil || r.exec == nil {
		out.Fault = "Code Error: no executor configured"
		return out
	}
	res := r.exec.Execute(ctx, out.Code, ds)
	out.Stdout = res.Stdout
	out.Fault = res.Fault
	out.Image = res.Image
	return out
}
