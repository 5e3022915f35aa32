package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/internal/config"
)

// stateDir is where nbfunc keeps the extracted Python runtime and the
// lock shared by every process using it.
func stateDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	dir := filepath.Join(base, "nbfunc")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// newBridge prepares the configured Python environment. The embedded
// runtime is extracted on first use, which can take a while.
func newBridge(cfg *config.Config) (*bridge.Bridge, error) {
	dir, err := stateDir()
	if err != nil {
		return nil, err
	}

	env, err := bridge.NewEnvironment(cfg.Python, filepath.Join(dir, "python"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare Python environment: %w", err)
	}

	return bridge.New(env, bridge.Options{
		Timeout:  cfg.Python.Timeout,
		LockPath: filepath.Join(dir, env.Name()+".lock"),
		Verbose:  verbose,
	}), nil
}
