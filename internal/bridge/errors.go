package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrEvaluation matches every *EvaluationError.
	ErrEvaluation = errors.New("evaluation failed")

	// ErrTimeout is returned when a run exceeds its deadline.
	ErrTimeout = errors.New("execution timed out")

	// ErrProtocol is returned when the interpreter's reply cannot be decoded.
	ErrProtocol = errors.New("invalid interpreter response")
)

// EvaluationError is raised when the notebook source or the function call
// raises inside the interpreter.
type EvaluationError struct {
	Name      string // function being resolved or called
	RunID     string
	Type      string // Python exception class
	Message   string
	Traceback string
}

func (e *EvaluationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("error evaluating %s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("error evaluating %s: %s: %s", e.Name, e.Type, e.Message)
}

// Is reports whether target is ErrEvaluation.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}
