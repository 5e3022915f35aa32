package bridge

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kluctl/go-embed-python/python"

	"github.com/mvp-joe/notebook-functions/internal/config"
)

// Environment is a Python interpreter that can run a script file.
// Implementations must be safe to share; the Bridge serializes runs.
type Environment interface {
	// Name identifies the environment in logs and lock files.
	Name() string

	// Command prepares the interpreter to run script. The process is
	// killed when ctx is done.
	Command(ctx context.Context, script string) (*exec.Cmd, error)

	Close() error
}

// EmbeddedPython runs scripts on the Python distribution bundled with the
// binary, extracted once into a persistent runtime directory.
type EmbeddedPython struct {
	ep *python.EmbeddedPython
}

// NewEmbeddedPython extracts (or reuses) the bundled interpreter under runtimeDir.
// The directory name gets a content hash suffix so upgrades never mix files.
func NewEmbeddedPython(runtimeDir string) (*EmbeddedPython, error) {
	ep, err := python.NewEmbeddedPythonWithTmpDir(runtimeDir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded Python: %w", err)
	}
	return &EmbeddedPython{ep: ep}, nil
}

func (e *EmbeddedPython) Name() string { return config.RuntimeEmbedded }

func (e *EmbeddedPython) Command(ctx context.Context, script string) (*exec.Cmd, error) {
	base, err := e.ep.PythonCmd(script)
	if err != nil {
		return nil, fmt.Errorf("failed to create Python command: %w", err)
	}

	// Rebuild with a context so deadlines kill the interpreter
	cmd := exec.CommandContext(ctx, base.Path, base.Args[1:]...)
	cmd.Env = base.Env
	cmd.Dir = base.Dir
	return cmd, nil
}

// Close leaves the extracted runtime in place for the next run.
func (e *EmbeddedPython) Close() error { return nil }

// SystemPython runs scripts on an interpreter found on PATH or given by path.
type SystemPython struct {
	interpreter string
}

// NewSystemPython resolves interpreter with exec.LookPath.
func NewSystemPython(interpreter string) (*SystemPython, error) {
	path, err := exec.LookPath(interpreter)
	if err != nil {
		return nil, fmt.Errorf("python interpreter %q not found: %w", interpreter, err)
	}
	return &SystemPython{interpreter: path}, nil
}

func (s *SystemPython) Name() string { return config.RuntimeSystem }

func (s *SystemPython) Command(ctx context.Context, script string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, s.interpreter, script), nil
}

func (s *SystemPython) Close() error { return nil }

// NewEnvironment builds the environment selected by cfg. runtimeDir is
// where the embedded runtime is extracted.
func NewEnvironment(cfg config.PythonConfig, runtimeDir string) (Environment, error) {
	switch strings.ToLower(cfg.Runtime) {
	case config.RuntimeSystem:
		return NewSystemPython(cfg.Interpreter)
	case config.RuntimeEmbedded, "":
		return NewEmbeddedPython(runtimeDir)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidRuntime, cfg.Runtime)
	}
}
