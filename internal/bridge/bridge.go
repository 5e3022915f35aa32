package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// lockRetryDelay is how often a blocked run retries the file lock.
const lockRetryDelay = 50 * time.Millisecond

// Options configures a Bridge.
type Options struct {
	// Timeout bounds every interpreter run. Zero means no limit.
	Timeout time.Duration

	// LockPath, when set, is a file locked around every run so that
	// separate processes sharing the environment also run one at a time.
	LockPath string

	// Verbose logs every run.
	Verbose bool
}

// Bridge evaluates notebook source in a Python environment. Runs on one
// Bridge are serialized.
type Bridge struct {
	env     Environment
	timeout time.Duration
	verbose bool

	mu         sync.Mutex
	lock       *flock.Flock
	scriptDir  string
	scriptPath string
}

// New creates a Bridge over env.
func New(env Environment, opts Options) *Bridge {
	b := &Bridge{
		env:     env,
		timeout: opts.Timeout,
		verbose: opts.Verbose,
	}
	if opts.LockPath != "" {
		b.lock = flock.New(opts.LockPath)
	}
	return b
}

// Callable is a notebook function that evaluated successfully and can be
// called any number of times. Every call re-evaluates the source in a fresh
// interpreter.
type Callable struct {
	bridge *Bridge
	name   string
	source string
}

// Name returns the function name the callable is bound to.
func (c *Callable) Name() string { return c.name }

// Source returns the evaluated source blob.
func (c *Callable) Source() string { return c.source }

// Resolve builds the source for name from idx and binds a callable to it.
// A name missing from the index fails with a *notebook.NotFoundError before
// any interpreter is started.
func (b *Bridge) Resolve(ctx context.Context, idx *notebook.Index, name string) (*Callable, error) {
	source, err := idx.SourceFor(name)
	if err != nil {
		return nil, err
	}
	return b.Load(ctx, source, name)
}

// Load evaluates source and checks that it defines a callable name.
// Evaluation failures return an *EvaluationError; a source that runs but
// leaves no callable name returns a *notebook.NotFoundError.
func (b *Bridge) Load(ctx context.Context, source, name string) (*Callable, error) {
	if _, err := b.run(ctx, &harnessRequest{Source: source, Name: name, Mode: modeProbe}); err != nil {
		return nil, err
	}
	return &Callable{bridge: b, name: name, source: source}, nil
}

// Exec builds the source for name from idx and calls it in a single
// interpreter run. It fails the same way Resolve followed by Call would:
// *notebook.NotFoundError for a name missing from the index (no interpreter
// is started) or left uncallable, *EvaluationError for failures.
func (b *Bridge) Exec(ctx context.Context, idx *notebook.Index, name string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	source, err := idx.SourceFor(name)
	if err != nil {
		return nil, err
	}
	return b.call(ctx, source, name, args, kwargs)
}

// Call invokes the function with JSON-compatible positional and keyword
// arguments and returns its result as JSON. Results that cannot be encoded
// as JSON are returned as their Python repr, encoded as a JSON string.
func (c *Callable) Call(ctx context.Context, args []any, kwargs map[string]any) (json.RawMessage, error) {
	return c.bridge.call(ctx, c.source, c.name, args, kwargs)
}

func (b *Bridge) call(ctx context.Context, source, name string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	resp, err := b.run(ctx, &harnessRequest{
		Source: source,
		Name:   name,
		Mode:   modeCall,
		Args:   args,
		Kwargs: kwargs,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return resp.Result, nil
}

// run executes one harness request. It holds the bridge mutex and, when
// configured, the file lock for the whole interpreter lifetime.
func (b *Bridge) run(ctx context.Context, req *harnessRequest) (*harnessResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if b.lock != nil {
		locked, err := b.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, b.contextError(ctx, req.Name, fmt.Errorf("failed to acquire lock: %w", err))
		}
		if !locked {
			return nil, fmt.Errorf("failed to acquire lock %s", b.lock.Path())
		}
		defer b.lock.Unlock()
	}

	script, err := b.ensureScript()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	runID := uuid.New().String()
	cmd, err := b.env.Command(ctx, script)
	if err != nil {
		return nil, err
	}

	// Bound the wait for pipes held open by orphaned children after a kill
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if b.verbose {
		log.Printf("[bridge] run %s %s %s on %s took %v", runID, req.Mode, req.Name, b.env.Name(), time.Since(start))
	}

	if ctx.Err() != nil {
		return nil, b.contextError(ctx, req.Name, ctx.Err())
	}

	var resp harnessResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("python process failed: %w: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if resp.OK {
		return &resp, nil
	}

	switch resp.Kind {
	case kindNotFound:
		return nil, &notebook.NotFoundError{Kind: notebook.KindFunction, Name: req.Name}
	case kindEvaluation:
		return nil, &EvaluationError{
			Name:      req.Name,
			RunID:     runID,
			Type:      resp.Type,
			Message:   resp.Message,
			Traceback: resp.Traceback,
		}
	default:
		return nil, fmt.Errorf("%w: unknown failure kind %q", ErrProtocol, resp.Kind)
	}
}

// contextError maps deadline expiry to ErrTimeout.
func (b *Bridge) contextError(ctx context.Context, name string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrTimeout, name, b.timeout)
	}
	return err
}

// ensureScript writes the harness to a private temp dir once per bridge.
// Caller must hold b.mu.
func (b *Bridge) ensureScript() (string, error) {
	if b.scriptPath != "" {
		return b.scriptPath, nil
	}

	dir, err := os.MkdirTemp("", "nbfunc-bridge-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(dir, "harness-"+uuid.New().String()+".py")
	if err := os.WriteFile(path, []byte(harnessScript), 0644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write harness script: %w", err)
	}

	b.scriptDir = dir
	b.scriptPath = path
	return path, nil
}

// Close removes the harness script and closes the environment.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scriptDir != "" {
		os.RemoveAll(b.scriptDir)
		b.scriptDir, b.scriptPath = "", ""
	}
	return b.env.Close()
}
