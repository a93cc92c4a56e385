package cmd

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/KaramelBytes/datacopilot/internal/ai"
	cfgpkg "github.com/KaramelBytes/datacopilot/internal/config"
	"github.com/KaramelBytes/datacopilot/internal/conversation"
	"github.com/KaramelBytes/datacopilot/internal/render"
	"github.com/KaramelBytes/datacopilot/internal/session"
	"github.com/KaramelBytes/datacopilot/internal/utils"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	var httpTimeout time.Duration
	if cfg != nil && cfg.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.Provider != "" {
		providerName = strings.ToLower(cfg.Provider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenAI
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{HTTPTimeout: httpTimeout}
	if cfg != nil {
		rc.APIKey = cfg.APIKey
		rc.BaseURL = cfg.BaseURL
	}
	if rc.APIKey == "" {
		rc.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if providerName == ai.ProviderOpenRouter {
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			rc.APIKey = v
		}
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	return ai.DefaultModel
}

type sessionOptions struct {
	Runtime runtimeOptions
	Model   string
	Logger  log.Interface
}

// sessionInfo describes what newSession wired, for logs and output.
type sessionInfo struct {
	Provider string
	Model    string
}

// newSession wires the completion runtime, the Python executor and the
// renderer into a fresh Session.
func newSession(cfg *cfgpkg.Global, opts sessionOptions) (*session.Session, sessionInfo, error) {
	rt, provider, err := buildRuntime(cfg, opts.Runtime)
	if err != nil {
		return nil, sessionInfo{Provider: provider}, err
	}
	maxTokens := ai.DefaultMaxTokens
	pythonBin := "python3"
	if cfg != nil {
		if cfg.MaxTokens > 0 {
			maxTokens = cfg.MaxTokens
		}
		if cfg.PythonBin != "" {
			pythonBin = cfg.PythonBin
		}
	}
	completer := ai.NewCompleter(rt, selectModel(cfg, opts.Model), maxTokens)
	sess := session.New(session.Options{
		Completer: completer,
		Renderer:  render.NewRenderer(render.NewPythonExecutor(pythonBin)),
		Logger:    opts.Logger,
	})
	return sess, sessionInfo{Provider: provider, Model: completer.Model()}, nil
}

type outputOptions struct {
	JSON       bool
	Quiet      bool
	Model      string
	Provider   string
	FigurePath string
	Writer     io.Writer
}

type turnOutput struct {
	Question string `json:"question"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
	Code     string `json:"code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Fault    string `json:"fault,omitempty"`
	Figure   string `json:"figure,omitempty"`
	// Base64 PNG when no --figure path was given.
	Image string `json:"image,omitempty"`
}

// formatAndWriteOutput prints one answered question in the terminal the way
// the page would show it, and saves the figure when asked to.
func formatAndWriteOutput(user, assistant conversation.Turn, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	out := assistant.Rendered
	if out == nil {
		out = &render.Output{Kind: render.KindProse, Prose: assistant.Content}
	}

	if opts.FigurePath != "" && len(out.Image) > 0 {
		if err := utils.SafeWriteFile(opts.FigurePath, out.Image); err != nil {
			return fmt.Errorf("write figure: %w", err)
		}
	}

	if opts.JSON {
		to := turnOutput{
			Question: user.Content,
			Model:    opts.Model,
			Provider: opts.Provider,
			Kind:     string(out.Kind),
			Content:  assistant.Content,
			Code:     out.Code,
			Stdout:   out.Stdout,
			Fault:    out.Fault,
		}
		if len(out.Image) > 0 {
			if opts.FigurePath != "" {
				to.Figure = opts.FigurePath
			} else {
				to.Image = base64.StdEncoding.EncodeToString(out.Image)
			}
		}
		b, err := utils.PrettyJSON(to)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "You: %s\n\n=== Copilot ===\n", user.Content)
	}
	if out.Kind != render.KindCode {
		fmt.Fprintln(w, out.Prose)
		return nil
	}
	if out.Stdout != "" {
		fmt.Fprint(w, out.Stdout)
		if !strings.HasSuffix(out.Stdout, "\n") {
			fmt.Fprintln(w)
		}
	}
	if out.Fault != "" {
		fmt.Fprintln(w, "✗ "+out.Fault)
	}
	if len(out.Image) > 0 && !opts.Quiet {
		if opts.FigurePath != "" {
			fmt.Fprintf(w, "\n💾 Saved figure to %s\n", opts.FigurePath)
		} else {
			fmt.Fprintln(w, "\n⚠ A figure was produced; pass --figure <file.png> to save it.")
		}
	}
	return nil
}
