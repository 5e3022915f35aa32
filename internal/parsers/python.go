package parsers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// ErrNoFunction is returned when the source holds no top-level function definition.
var ErrNoFunction = errors.New("no function definition found")

// PythonParser describes Python function definitions.
type PythonParser struct {
	language *sitter.Language
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Describe parses a single function body (as returned by the notebook index)
// and describes its first top-level definition.
func (p *PythonParser) Describe(ctx context.Context, body string) (*FunctionInfo, error) {
	funcs, err := p.DescribeAll(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(funcs) == 0 {
		return nil, ErrNoFunction
	}
	return &funcs[0], nil
}

// DescribeAll describes every top-level function definition in source, in
// document order. Methods and nested functions are not included.
func (p *PythonParser) DescribeAll(ctx context.Context, source string) ([]FunctionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := []byte(source)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set python language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse python source")
	}
	defer tree.Close()

	root := tree.RootNode()
	partial := root.HasError()

	var funcs []FunctionInfo
	for _, child := range namedChildren(root) {
		var decorators []string
		def := child

		if child.Kind() == "decorated_definition" {
			for _, dec := range findChildrenByType(child, "decorator") {
				decorators = append(decorators, strings.TrimSpace(strings.TrimPrefix(extractNodeText(dec, src), "@")))
			}
			def = child.ChildByFieldName("definition")
		}

		if def == nil || def.Kind() != "function_definition" {
			continue
		}

		info := p.describeFunction(def, src)
		if info == nil {
			continue
		}
		info.Decorators = decorators
		info.Partial = partial
		if child != def {
			info.StartLine = int(child.StartPosition().Row) + 1
		}
		funcs = append(funcs, *info)
	}

	return funcs, nil
}

// describeFunction extracts a function_definition node.
func (p *PythonParser) describeFunction(node *sitter.Node, source []byte) *FunctionInfo {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	info := &FunctionInfo{
		Name:      extractNodeText(nameNode, source),
		Signature: p.buildFunctionSignature(node, source),
		Params:    p.extractParams(node.ChildByFieldName("parameters"), source),
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		Calls:     []string{},
	}

	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		info.ReturnType = extractNodeText(returnNode, source)
	}

	body := node.ChildByFieldName("body")
	info.Docstring = p.extractDocstring(body, source)
	info.Calls = p.extractCalls(body, source)

	return info
}

// buildFunctionSignature builds a function signature string.
func (p *PythonParser) buildFunctionSignature(node *sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}

	sig := extractNodeText(nameNode, source)

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		sig += extractNodeText(paramsNode, source)
	} else {
		sig += "()"
	}

	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		sig += " -> " + extractNodeText(returnNode, source)
	}

	return sig
}

// extractParams converts a parameters node into Params. Bare `*` and `/`
// separators are skipped.
func (p *PythonParser) extractParams(node *sitter.Node, source []byte) []Param {
	params := []Param{}
	if node == nil {
		return params
	}

	for _, child := range namedChildren(node) {
		var param Param

		switch child.Kind() {
		case "identifier":
			param = Param{Name: extractNodeText(child, source), Kind: ParamPositional}

		case "list_splat_pattern", "dictionary_splat_pattern":
			param = splatParam(extractNodeText(child, source))

		case "typed_parameter":
			inner := namedChildren(child)
			if len(inner) == 0 {
				continue
			}
			param = splatParam(extractNodeText(inner[0], source))
			param.Type = extractNodeText(child.ChildByFieldName("type"), source)

		case "default_parameter", "typed_default_parameter":
			param = Param{
				Name:    extractNodeText(child.ChildByFieldName("name"), source),
				Kind:    ParamPositional,
				Type:    extractNodeText(child.ChildByFieldName("type"), source),
				Default: extractNodeText(child.ChildByFieldName("value"), source),
			}

		default:
			continue
		}

		if param.Name != "" {
			params = append(params, param)
		}
	}

	return params
}

// splatParam builds a Param from an identifier or a *args / **kwargs pattern.
func splatParam(text string) Param {
	switch {
	case strings.HasPrefix(text, "**"):
		return Param{Name: text[2:], Kind: ParamVarKeyword}
	case strings.HasPrefix(text, "*"):
		return Param{Name: text[1:], Kind: ParamVarPositional}
	default:
		return Param{Name: text, Kind: ParamPositional}
	}
}

// extractDocstring returns the cleaned docstring when the first statement of
// the body is a string literal.
func (p *PythonParser) extractDocstring(body *sitter.Node, source []byte) string {
	stmts := namedChildren(body)
	if len(stmts) == 0 || stmts[0].Kind() != "expression_statement" {
		return ""
	}

	expr := namedChildren(stmts[0])
	if len(expr) == 0 || expr[0].Kind() != "string" {
		return ""
	}

	return cleanDocstring(extractNodeText(expr[0], source))
}

// extractCalls collects callee expressions in order of first appearance.
func (p *PythonParser) extractCalls(body *sitter.Node, source []byte) []string {
	calls := []string{}
	seen := make(map[string]struct{})

	walkTree(body, func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		if kind := fn.Kind(); kind != "identifier" && kind != "attribute" {
			return true
		}
		name := extractNodeText(fn, source)
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			calls = append(calls, name)
		}
		return true
	})

	return calls
}

// cleanDocstring strips the quotes of a string literal and removes the
// common indentation of its continuation lines.
func cleanDocstring(literal string) string {
	text := strings.TrimLeft(literal, "rRuUbBfF")
	switch {
	case strings.HasPrefix(text, `"""`) || strings.HasPrefix(text, `'''`):
		text = trimQuotes(text, 3)
	case strings.HasPrefix(text, `"`) || strings.HasPrefix(text, `'`):
		text = trimQuotes(text, 1)
	}

	lines := strings.Split(text, "\n")

	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent == -1 || n < indent {
			indent = n
		}
	}

	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}

	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func trimQuotes(text string, n int) string {
	if len(text) < 2*n {
		return ""
	}
	return text[n : len(text)-n]
}
