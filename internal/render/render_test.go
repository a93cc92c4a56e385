package render

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
)

type fakeExecutor struct {
	calls int
	code  string
	ds    *dataset.Dataset
	res   Execution
}

func (f *fakeExecutor) Execute(_ context.Context, code string, ds *dataset.Dataset) Execution {
	f.calls++
	f.code = code
	f.ds = ds
	return f.res
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"```python\nprint(1)\n```":                KindCode,
		"  \n```python\nprint(1)\n```":            KindCode,
		"```py\nprint(1)\n```":                    KindProse,
		"```\nprint(1)\n```":                      KindProse,
		"Here is code:\n```python\nprint(1)\n```": KindProse,
		"A p-value is a probability.":             KindProse,
		"":                                        KindProse,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", "```python\nprint(df['income'].mean())\n```", "print(df['income'].mean())"},
		{"trailing prose", "```python\nx = 1\nprint(x)\n```\nThis prints one.", "x = 1\nprint(x)"},
		{"unterminated", "```python\nprint(2)", "print(2)"},
		{"crlf", "```python\r\nprint(3)\r\n```", "print(3)"},
		{"only fence", "```python", ""},
		{"keeps python letters", "```python\nprint('typhon')\n```", "print('typhon')"},
		{"fence glued to code", "```python\nprint(df['income'].mean())```", "print(df['income'].mean())"},
		{"single line", "```python print(df.shape)```", "print(df.shape)"},
		{"crlf body", "```python\r\nx = 1\r\nprint(x)\r\n```", "x = 1\nprint(x)"},
	}
	for _, c := range cases {
		if got := ExtractCode(c.in); got != c.want {
			t.Fatalf("%s: ExtractCode = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestRenderProseNeverExecutes(t *testing.T) {
	fx := &fakeExecutor{}
	out := NewRenderer(fx).Render(context.Background(), "A p-value is the probability...", nil)
	if out.Kind != KindProse || out.Prose != "A p-value is the probability..." {
		t.Fatalf("unexpected output: %+v", out)
	}
	if fx.calls != 0 {
		t.Fatalf("prose must not be executed")
	}
}

func TestRenderCodeRunsExecutor(t *testing.T) {
	ds, err := dataset.Parse("people.csv", []byte("age,income\n34,52000\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fx := &fakeExecutor{res: Execution{Stdout: "52000.0\n", Image: []byte{0x89, 'P', 'N', 'G'}}}
	out := NewRenderer(fx).Render(context.Background(), "```python\nprint(df['income'].mean())\n```", ds)
	if out.Kind != KindCode || out.Code != "print(df['income'].mean())" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if fx.calls != 1 || fx.ds != ds {
		t.Fatalf("executor not called with dataset")
	}
	if out.Stdout != "52000.0\n" || len(out.Image) != 4 || out.HasFault() {
		t.Fatalf("execution not propagated: %+v", out)
	}
}

func TestRenderEmptyCodeBlockFaults(t *testing.T) {
	for _, resp := range []string{"```python", "```python\n```", "```python   ```"} {
		fx := &fakeExecutor{}
		out := NewRenderer(fx).Render(context.Background(), resp, nil)
		if out.Kind != KindCode || !out.HasFault() {
			t.Fatalf("%q: expected a visible fault, got %+v", resp, out)
		}
		if fx.calls != 0 {
			t.Fatalf("%q: empty code must not be executed", resp)
		}
	}
}

func TestRenderSingleLineBlockExecutes(t *testing.T) {
	fx := &fakeExecutor{res: Execution{Stdout: "(2, 2)\n"}}
	out := NewRenderer(fx).Render(context.Background(), "```python print(df.shape)```", nil)
	if fx.calls != 1 || fx.code != "print(df.shape)" || out.Stdout != "(2, 2)\n" {
		t.Fatalf("unexpected render: calls=%d code=%q out=%+v", fx.calls, fx.code, out)
	}
}

func TestRenderWithoutExecutorFaults(t *testing.T) {
	out := NewRenderer(nil).Render(context.Background(), "```python\nprint(1)\n```", nil)
	if !out.HasFault() {
		t.Fatalf("expected fault without executor")
	}
}

// requirePython returns a python3 that can import modules, or skips.
func requirePython(t *testing.T, modules ...string) string {
	t.Helper()
	bin, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	if len(modules) > 0 {
		if err := exec.Command(bin, "-c", "import "+strings.Join(modules, ", ")).Run(); err != nil {
			t.Skipf("%s not available", strings.Join(modules, "/"))
		}
	}
	return bin
}

// stubInterpreter writes a shell script that stands in for python3. It is
// called as: <bin> harness.py code.py data.csv|- fig.png fault.txt
func stubInterpreter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub interpreter needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "python-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestExecutorPassesCodeAndDataset(t *testing.T) {
	bin := stubInterpreter(t, `cat "$2"; echo; cat "$3"`+"\n")
	ds, err := dataset.Parse("people.csv", []byte("age,income\n34,52000\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := NewPythonExecutor(bin).Execute(context.Background(), "print(df.shape)", ds)
	if res.Fault != "" || res.Image != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Stdout != "print(df.shape)\nage,income\n34,52000\n" {
		t.Fatalf("unexpected stdout: %q", res.Stdout)
	}
}

func TestExecutorWithoutDatasetPassesDash(t *testing.T) {
	bin := stubInterpreter(t, `printf '%s' "$3"`+"\n")
	res := NewPythonExecutor(bin).Execute(context.Background(), "print(1)", nil)
	if res.Stdout != "-" {
		t.Fatalf("expected '-' for missing dataset, got %q", res.Stdout)
	}
}

func TestExecutorPicksUpFigure(t *testing.T) {
	bin := stubInterpreter(t, `printf 'PNGDATA' > "$4"`+"\n")
	res := NewPythonExecutor(bin).Execute(context.Background(), "plot()", nil)
	if string(res.Image) != "PNGDATA" || res.Fault != "" {
		t.Fatalf("figure not picked up: %+v", res)
	}
}

func TestExecutorPicksUpFaultAndPartialStdout(t *testing.T) {
	bin := stubInterpreter(t, `echo before; printf 'Code Error: boom\nTraceback' > "$5"`+"\n")
	res := NewPythonExecutor(bin).Execute(context.Background(), "1/0", nil)
	if res.Stdout != "before\n" {
		t.Fatalf("partial stdout lost: %q", res.Stdout)
	}
	if res.Fault != "Code Error: boom\nTraceback" {
		t.Fatalf("fault not picked up: %q", res.Fault)
	}
}

func TestExecutorExitStatusBecomesFault(t *testing.T) {
	bin := stubInterpreter(t, "echo 'No module named matplotlib' >&2; exit 3\n")
	res := NewPythonExecutor(bin).Execute(context.Background(), "print(1)", nil)
	if !strings.HasPrefix(res.Fault, "Code Error: interpreter exited with status 3") {
		t.Fatalf("unexpected fault: %q", res.Fault)
	}
	if !strings.Contains(res.Fault, "No module named matplotlib") {
		t.Fatalf("stderr not carried into fault: %q", res.Fault)
	}
}

func TestExecutorRemovesWorkDir(t *testing.T) {
	tmp := t.TempDir()
	bin := stubInterpreter(t, "true\n")
	px := NewPythonExecutor(bin)
	px.TempDir = tmp
	px.Execute(context.Background(), "print(1)", nil)
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not removed: %v", entries)
	}
}

func TestPythonExecutorStdoutAndFigure(t *testing.T) {
	bin := requirePython(t, "pandas", "matplotlib")
	ds, err := dataset.Parse("people.csv", []byte("age,income\n34,52000\n29,48000\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	code := "import matplotlib.pyplot as plt\nprint(df['income'].mean())\ndf.plot(x='age', y='income')\n"
	res := NewPythonExecutor(bin).Execute(context.Background(), code, ds)
	if res.Fault != "" {
		t.Fatalf("unexpected fault: %s", res.Fault)
	}
	if !strings.Contains(res.Stdout, "50000.0") {
		t.Fatalf("stdout missing mean: %q", res.Stdout)
	}
	if len(res.Image) < 8 || string(res.Image[1:4]) != "PNG" {
		t.Fatalf("expected png figure")
	}
}

func TestPythonExecutorFaultKeepsPartialOutput(t *testing.T) {
	bin := requirePython(t, "matplotlib")
	res := NewPythonExecutor(bin).Execute(context.Background(), "print('before')\n1/0\n", nil)
	if !strings.Contains(res.Stdout, "before") {
		t.Fatalf("partial stdout lost: %q", res.Stdout)
	}
	if !strings.HasPrefix(res.Fault, "Code Error: division by zero") || !strings.Contains(res.Fault, "Traceback") {
		t.Fatalf("unexpected fault: %q", res.Fault)
	}
	if res.Image != nil {
		t.Fatalf("no figure expected")
	}
}

func TestPythonExecutorNoDatasetHidesDF(t *testing.T) {
	bin := requirePython(t, "matplotlib")
	res := NewPythonExecutor(bin).Execute(context.Background(), "print(df)\n", nil)
	if !strings.Contains(res.Fault, "NameError") {
		t.Fatalf("expected NameError for df, got %q", res.Fault)
	}
}

func TestPythonExecutorFreshCanvasPerRun(t *testing.T) {
	bin := requirePython(t, "matplotlib")
	px := NewPythonExecutor(bin)
	first := px.Execute(context.Background(), "import matplotlib.pyplot as plt\nplt.plot([1, 2, 3])\n", nil)
	if first.Image == nil {
		t.Fatalf("expected first figure")
	}
	second := px.Execute(context.Background(), "print('no plot')\n", nil)
	if second.Image != nil {
		t.Fatalf("stale figure leaked into the next run")
	}
}

func TestPythonExecutorMissingInterpreter(t *testing.T) {
	res := NewPythonExecutor("/nonexistent/python-bin").Execute(context.Background(), "print(1)", nil)
	if !strings.HasPrefix(res.Fault, "Code Error:") {
		t.Fatalf("expected fault for missing interpreter, got %+v", res)
	}
}
