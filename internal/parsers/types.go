package parsers

// ParamKind classifies a function parameter.
type ParamKind string

const (
	ParamPositional    ParamKind = "positional"
	ParamVarPositional ParamKind = "var_positional" // *args
	ParamVarKeyword    ParamKind = "var_keyword"    // **kwargs
)

// Param is one parameter of a function definition.
type Param struct {
	Name    string    `json:"name"`
	Kind    ParamKind `json:"kind"`
	Type    string    `json:"type,omitempty"`
	Default string    `json:"default,omitempty"`
}

// FunctionInfo describes a Python function definition.
type FunctionInfo struct {
	Name       string   `json:"name"`
	Signature  string   `json:"signature"`
	Params     []Param  `json:"params"`
	ReturnType string   `json:"return_type,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`
	Decorators []string `json:"decorators,omitempty"`

	// Calls lists the callee expressions found in the body, in order of
	// first appearance ("helper", "math.sqrt").
	Calls []string `json:"calls"`

	// Lines are 1-based and relative to the parsed source.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Partial is set when the source had syntax errors and the
	// description was recovered from an incomplete tree.
	Partial bool `json:"partial,omitempty"`
}
