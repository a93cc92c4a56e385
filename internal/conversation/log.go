package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datacopilot/internal/render"
)

// Speaker identifies who authored a turn.
type Speaker string

const (
	User      Speaker = "user"
	Assistant Speaker = "assistant"
)

// Turn is one entry of the transcript. Rendered is set on assistant turns and
// holds the output produced when the turn was appended.
type Turn struct {
	ID        string         `json:"id"`
	Speaker   Speaker        `json:"speaker"`
	Content   string         `json:"content"`
	Rendered  *render.Output `json:"rendered,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Log is an append-only, chronologically ordered transcript.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewLog() *Log { return &Log{} }

// Append stores t, assigning an ID and timestamp when missing, and returns the
// stored copy.
func (l *Log) Append(t Turn) Turn {
	if t.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		t.ID = id.String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Rendered != nil {
		r := *t.Rendered
		t.Rendered = &r
	}
	l.mu.Lock()
	l.turns = append(l.turns, t)
	l.mu.Unlock()
	return t
}

// Turns returns a copy of the transcript in append order.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	for i, t := range l.turns {
		if t.Rendered != nil {
			r := *t.Rendered
			t.Rendered = &r
		}
		out[i] = t
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}
