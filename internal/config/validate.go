package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRuntime indicates an unsupported python runtime
	ErrInvalidRuntime = errors.New("invalid python runtime")

	// ErrEmptyInterpreter indicates the system runtime has no interpreter
	ErrEmptyInterpreter = errors.New("empty python interpreter")

	// ErrInvalidTimeout indicates a non-positive execution timeout
	ErrInvalidTimeout = errors.New("invalid python timeout")

	// ErrInvalidCapacity indicates invalid cache settings
	ErrInvalidCapacity = errors.New("invalid cache settings")

	// ErrEmptyPatterns indicates no notebook patterns were configured
	ErrEmptyPatterns = errors.New("empty notebook patterns")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")

	// ErrInvalidLimit indicates an out-of-range search limit
	ErrInvalidLimit = errors.New("invalid search limit")
)

// MaxSearchLimit caps search.default_limit.
const MaxSearchLimit = 100

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validatePython(&cfg.Python); err != nil {
		errs = append(errs, err)
	}

	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce cannot be negative, got %s", ErrInvalidDebounce, cfg.Watch.Debounce))
	}

	if cfg.Search.DefaultLimit <= 0 || cfg.Search.DefaultLimit > MaxSearchLimit {
		errs = append(errs, fmt.Errorf("%w: default_limit must be between 1 and %d, got %d", ErrInvalidLimit, MaxSearchLimit, cfg.Search.DefaultLimit))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	// Ignore patterns may be empty; notebook patterns may not
	if len(cfg.Notebooks) == 0 {
		return fmt.Errorf("%w: at least one notebook pattern required", ErrEmptyPatterns)
	}
	return nil
}

func validatePython(cfg *PythonConfig) error {
	var errs []error

	runtime := strings.ToLower(cfg.Runtime)
	if runtime != RuntimeEmbedded && runtime != RuntimeSystem {
		errs = append(errs, fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidRuntime, RuntimeEmbedded, RuntimeSystem, cfg.Runtime))
	}

	if runtime == RuntimeSystem && strings.TrimSpace(cfg.Interpreter) == "" {
		errs = append(errs, fmt.Errorf("%w: interpreter is required for the system runtime", ErrEmptyInterpreter))
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidTimeout, cfg.Timeout))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateCache(cfg *CacheConfig) error {
	var errs []error

	if cfg.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCapacity, cfg.Capacity))
	}

	// Zero TTL disables expiry
	if cfg.TTL < 0 {
		errs = append(errs, fmt.Errorf("%w: ttl cannot be negative, got %s", ErrInvalidCapacity, cfg.TTL))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every wrapped sentinel through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() []error { return e.errs }
