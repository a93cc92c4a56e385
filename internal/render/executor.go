package render

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datacopilot/internal/dataset"
)

//go:embed harness.py
var harnessSource []byte

// Execution is the captured result of running one script.
type Execution struct {
	Stdout string
	Fault  string
	Image  []byte
}

// Executor runs analysis code against an optional dataset.
type Executor interface {
	Execute(ctx context.Context, code string, ds *dataset.Dataset) Execution
}

// PythonExecutor runs each script in a fresh interpreter process, so no
// figure or variable survives from one turn to the next. Nothing is sandboxed.
type PythonExecutor struct {
	Bin string
	// TempDir overrides os.TempDir for the per-run work directory.
	TempDir string
}

func NewPythonExecutor(bin string) *PythonExecutor {
	if bin == "" {
		bin = "python3"
	}
	return &PythonExecutor{Bin: bin}
}

// Execute never returns an error: every failure becomes Execution.Fault.
func (p *PythonExecutor) Execute(ctx context.Context, code string, ds *dataset.Dataset) Execution {
	dir, err := os.MkdirTemp(p.TempDir, "datacopilot-run-")
	if err != nil {
		return Execution{Fault: fmt.Sprintf("Code Error: create work dir: %v", err)}
	}
	defer os.RemoveAll(dir)

	var (
		harness   = filepath.Join(dir, "harness.py")
		codePath  = filepath.Join(dir, "code.py")
		dataPath  = "-"
		figPath   = filepath.Join(dir, "fig.png")
		faultPath = filepath.Join(dir, "fault.txt")
	)
	if err := os.WriteFile(harness, harnessSource, 0o600); err != nil {
		return Execution{Fault: fmt.Sprintf("Code Error: write harness: %v", err)}
	}
	if err := os.WriteFile(codePath, []byte(code), 0o600); err != nil {
		return Execution{Fault: fmt.Sprintf("Code Error: write code: %v", err)}
	}
	if ds != nil {
		raw, err := ds.Encode()
		if err != nil {
			return Execution{Fault: fmt.Sprintf("Code Error: encode dataset: %v", err)}
		}
		dataPath = filepath.Join(dir, "data.csv")
		if err := os.WriteFile(dataPath, raw, 0o600); err != nil {
			return Execution{Fault: fmt.Sprintf("Code Error: write dataset: %v", err)}
		}
	}

	cmd := exec.CommandContext(ctx, p.Bin, harness, codePath, dataPath, figPath, faultPath)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	res := Execution{Stdout: stdout.String()}
	if b, err := os.ReadFile(faultPath); err == nil {
		res.Fault = string(b)
	}
	if b, err := os.ReadFile(figPath); err == nil && len(b) > 0 {
		res.Image = b
	}
	if runErr != nil && res.Fault == "" {
		res.Fault = harnessFault(runErr, stderr.String())
	}
	return res
}

func harnessFault(err error, stderr string) string {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = ee.Error()
		}
		return fmt.Sprintf("Code Error: interpreter exited with status %d\n%s", ee.ExitCode(), msg)
	}
	return fmt.Sprintf("Code Error: %v", err)
}
