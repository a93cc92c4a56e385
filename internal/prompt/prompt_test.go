package prompt

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
)

func TestBuildWithoutDatasetHasNoPreview(t *testing.T) {
	p := Build("What is a p-value?", nil)
	if strings.Contains(p, "has columns") || strings.Contains(p, "first few rows") {
		t.Fatalf("prompt must not contain a dataset section:\n%s", p)
	}
	if !strings.HasSuffix(p, "User's message: What is a p-value?\n") {
		t.Fatalf("question not appended last:\n%s", p)
	}
	if !strings.Contains(p, "```python") || !strings.Contains(p, "answer conversationally") {
		t.Fatalf("fixed instructions missing:\n%s", p)
	}
}

func TestBuildWithDatasetEmbedsColumnsAndThreeRows(t *testing.T) {
	body := "age,income\n34,52000\n29,48000\n41,61000\n55,75000\n"
	ds, err := dataset.Parse("people.csv", []byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := Build("What is the average income?", ds)
	if !strings.Contains(p, "columns: age, income") {
		t.Fatalf("column list missing:\n%s", p)
	}
	wantPreview := "age,income\n34,52000\n29,48000\n41,61000\n"
	if !strings.Contains(p, wantPreview) {
		t.Fatalf("3-row preview missing:\n%s", p)
	}
	if strings.Contains(p, "55,75000") {
		t.Fatalf("preview leaked a 4th row:\n%s", p)
	}
}

func TestBuildCapsLongPreviewCells(t *testing.T) {
	long := strings.Repeat("x", PreviewCellTokens*4+100)
	ds, err := dataset.Parse("notes.csv", []byte("id,note\n1,"+long+"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := Build("q", ds)
	if strings.Contains(p, long) {
		t.Fatalf("long cell was not capped")
	}
	if !strings.Contains(p, "1,"+long[:PreviewCellTokens*4]+"\n") {
		t.Fatalf("capped cell missing:\n%s", p)
	}
	if ds.Rows[0][1] != long {
		t.Fatalf("capping must not modify the dataset")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	ds, _ := dataset.Parse("a.csv", []byte("x\n1\n"))
	if Build("q", ds) != Build("q", ds) {
		t.Fatalf("Build must be deterministic")
	}
}

func TestEstimate(t *testing.T) {
	if Estimate("") != 0 || Estimate(Build("q", nil)) == 0 {
		t.Fatalf("unexpected token estimate")
	}
}
