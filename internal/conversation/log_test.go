package conversation

import (
	"sync"
	"testing"

	"github.com/KaramelBytes/datacopilot/internal/render"
)

func TestAppendAssignsIDsInOrder(t *testing.T) {
	l := NewLog()
	a := l.Append(Turn{Speaker: User, Content: "What is the average income?"})
	b := l.Append(Turn{Speaker: Assistant, Content: "52000"})
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Fatalf("expected timestamp")
	}
	turns := l.Turns()
	if len(turns) != 2 || turns[0].Speaker != User || turns[1].Speaker != Assistant {
		t.Fatalf("unexpected order: %+v", turns)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d", l.Len())
	}
}

func TestTurnsReturnsCopies(t *testing.T) {
	l := NewLog()
	l.Append(Turn{Speaker: Assistant, Content: "x", Rendered: &render.Output{Kind: render.KindCode, Stdout: "1\n"}})
	got := l.Turns()
	got[0].Content = "mutated"
	got[0].Rendered.Stdout = "mutated"
	again := l.Turns()
	if again[0].Content != "x" || again[0].Rendered.Stdout != "1\n" {
		t.Fatalf("stored turn was mutated: %+v", again[0])
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(Turn{Speaker: User, Content: "q"})
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Fatalf("expected 50 turns, got %d", l.Len())
	}
}
