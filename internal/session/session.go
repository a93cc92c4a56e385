package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/KaramelBytes/datacopilot/internal/ai"
	"github.com/KaramelBytes/datacopilot/internal/conversation"
	"github.com/KaramelBytes/datacopilot/internal/dataset"
	"github.com/KaramelBytes/datacopilot/internal/metrics"
	"github.com/KaramelBytes/datacopilot/internal/prompt"
	"github.com/KaramelBytes/datacopilot/internal/render"
)

// ErrEmptyQuestion is returned by Ask for blank input. Nothing is appended.
var ErrEmptyQuestion = errors.New("question is empty")

// Completer is the slice of ai.Completer the session depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) ai.Result
}

// NoticeLevel drives how the surface styles an inline notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level NoticeLevel
	Text  string
}

// View is the full state needed to draw the page.
type View struct {
	Notice  *Notice
	Dataset *dataset.Dataset
	Profile *dataset.Profile
	Turns   []conversation.Turn
}

type Options struct {
	Completer Completer
	Renderer  *render.Renderer
	Logger    log.Interface
	Profile   dataset.ProfileOptions
}

// Session owns all state of one running instance. Ask and Upload are
// serialized so at most one interaction is in flight.
type Session struct {
	mu sync.Mutex

	holder    *dataset.Holder
	log       *conversation.Log
	completer Completer
	renderer  *render.Renderer
	logger    log.Interface
	profOpts  dataset.ProfileOptions

	stateMu sync.Mutex
	notice  *Notice
	profile *dataset.Profile
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Log
	}
	profOpts := opts.Profile
	if profOpts == (dataset.ProfileOptions{}) {
		profOpts = dataset.DefaultProfileOptions()
	}
	return &Session{
		holder:    &dataset.Holder{},
		log:       conversation.NewLog(),
		completer: opts.Completer,
		renderer:  opts.Renderer,
		logger:    logger,
		profOpts:  profOpts,
	}
}

// Upload replaces the dataset. A parse failure leaves the previous dataset in
// place and surfaces an inline notice.
func (s *Session) Upload(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.holder.Load(name, data)
	if err != nil {
		s.reject(name, err)
		return err
	}
	metrics.UploadsTotal.WithLabelValues(metrics.Result(true, "error")).Inc()
	prof := dataset.BuildProfile(ds, s.profOpts)
	s.stateMu.Lock()
	s.profile = prof
	s.stateMu.Unlock()
	s.logger.WithFields(log.Fields{
		"file":    name,
		"rows":    len(ds.Rows),
		"columns": len(ds.Columns),
	}).Info("dataset loaded")
	s.setNotice(NoticeSuccess, "File uploaded!")
	return nil
}

// Reject records an upload that failed before it could be parsed, such as
// one over the size limit. The previous dataset stays in place.
func (s *Session) Reject(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(name, err)
}

func (s *Session) reject(name string, err error) {
	metrics.UploadsTotal.WithLabelValues(metrics.Result(false, "error")).Inc()
	s.logger.WithError(err).WithField("file", name).Warn("upload rejected")
	s.setNotice(NoticeError, fmt.Sprintf("Could not read %s: %v", name, err))
}

// Ask runs one full interaction: it appends the user turn, completes the
// prompt and appends exactly one assistant turn. A completion failure becomes
// an "LLM Error" turn; it is never returned.
func (s *Session) Ask(ctx context.Context, question string) (conversation.Turn, conversation.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		s.setNotice(NoticeInfo, "Type a question first.")
		return conversation.Turn{}, conversation.Turn{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.log.Append(conversation.Turn{Speaker: conversation.User, Content: question})
	ds := s.holder.Current()
	p := prompt.Build(question, ds)
	logger := s.logger.WithFields(log.Fields{
		"turn":          user.ID,
		"has_dataset":   ds != nil,
		"prompt_tokens": prompt.Estimate(p),
	})

	start := time.Now()
	res := s.complete(ctx, p)
	metrics.CompletionDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.CompletionsTotal.WithLabelValues(metrics.Result(res.OK(), "error")).Inc()

	if !res.OK() {
		entry := logger.WithError(res.Err)
		if hint := ai.Hint(res.Err); hint != "" {
			entry = entry.WithField("hint", hint)
		}
		entry.Warn("completion failed")
		content := "LLM Error: " + res.Err.Error()
		assistant := s.log.Append(conversation.Turn{
			Speaker:  conversation.Assistant,
			Content:  content,
			Rendered: &render.Output{Kind: render.KindProse, Prose: content},
		})
		return user, assistant, nil
	}

	out := s.renderer.Render(ctx, res.Text, ds)
	if out.Kind == render.KindCode {
		metrics.ExecutionsTotal.WithLabelValues(metrics.Result(!out.HasFault(), "fault")).Inc()
		if out.HasFault() {
			logger.Warn("generated code raised a fault")
		}
	}
	logger.WithFields(log.Fields{
		"kind":       string(out.Kind),
		"request_id": res.RequestID,
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("turn answered")

	assistant := s.log.Append(conversation.Turn{
		Speaker:  conversation.Assistant,
		Content:  res.Text,
		Rendered: &out,
	})
	return user, assistant, nil
}

func (s *Session) complete(ctx context.Context, p string) (res ai.Result) {
	if s.completer == nil {
		return ai.Result{Err: errors.New("no language model configured")}
	}
	defer func() {
		if r := recover(); r != nil {
			res = ai.Result{Err: fmt.Errorf("completion panicked: %v", r)}
		}
	}()
	return s.completer.Complete(ctx, p)
}

// View returns the full state and consumes the pending notice.
func (s *Session) View() View {
	s.stateMu.Lock()
	n := s.notice
	s.notice = nil
	prof := s.profile
	s.stateMu.Unlock()
	return View{
		Notice:  n,
		Dataset: s.holder.Current(),
		Profile: prof,
		Turns:   s.log.Turns(),
	}
}

// Export returns the current dataset as CSV bytes.
func (s *Session) Export() ([]byte, error) {
	return s.holder.Export()
}

// Dataset returns the active dataset or nil.
func (s *Session) Dataset() *dataset.Dataset { return s.holder.Current() }

func (s *Session) setNotice(level NoticeLevel, text string) {
	s.stateMu.Lock()
	s.notice = &Notice{Level: level, Text: text}
	s.stateMu.Unlock()
}
