package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/callgraph"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
)

var (
	describeDepthFlag int
	describeJSONFlag  bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <notebook> <function>",
	Short: "Describe a function's signature, docstring and calls",
	Long: `Describe parses the last definition of a function and prints its signature,
parameters, return annotation, decorators and docstring, followed by the
notebook functions it calls and the ones that call it.

Examples:
  nbfunc describe analysis.ipynb factorial
  nbfunc describe analysis.ipynb factorial --depth 3 --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDescribe(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], describeDepthFlag, describeJSONFlag)
	},
}

func init() {
	describeCmd.Flags().IntVar(&describeDepthFlag, "depth", callgraph.DefaultDepth,
		fmt.Sprintf("call graph depth (max %d)", callgraph.MaxDepth))
	describeCmd.Flags().BoolVar(&describeJSONFlag, "json", false, "print JSON")
	rootCmd.AddCommand(describeCmd)
}

// Description is the describe output.
type Description struct {
	Notebook    string                `json:"notebook"`
	Cell        int                   `json:"cell"`
	Line        int                   `json:"line"`
	Definitions int                   `json:"definitions"`
	Info        *parsers.FunctionInfo `json:"info"`
	Callees     []callgraph.Result    `json:"callees"`
	Callers     []callgraph.Result    `json:"callers"`
}

func describe(ctx context.Context, path, name string, depth int) (*Description, error) {
	idx, err := openNotebook(path)
	if err != nil {
		return nil, err
	}
	rec, err := idx.Authoritative(name)
	if err != nil {
		return nil, err
	}

	parser := parsers.NewPythonParser()
	info, err := parser.Describe(ctx, rec.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	g, err := callgraph.Build(ctx, idx, parser)
	if err != nil {
		return nil, fmt.Errorf("failed to build call graph: %w", err)
	}
	callees, err := g.Callees(name, depth)
	if err != nil {
		return nil, err
	}
	callers, err := g.Callers(name, depth)
	if err != nil {
		return nil, err
	}

	return &Description{
		Notebook:    path,
		Cell:        rec.Cell,
		Line:        rec.Line,
		Definitions: len(idx.Definitions(name)),
		Info:        info,
		Callees:     callees,
		Callers:     callers,
	}, nil
}

func runDescribe(ctx context.Context, w io.Writer, path, name string, depth int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := describe(ctx, path, name, depth)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	info := d.Info
	fmt.Fprintln(w, info.Signature)
	if d.Definitions > 1 {
		fmt.Fprintf(w, "  defined in cell %d, line %d (%d definitions, last one wins)\n", d.Cell, d.Line, d.Definitions)
	} else {
		fmt.Fprintf(w, "  defined in cell %d, line %d\n", d.Cell, d.Line)
	}
	if info.Partial {
		fmt.Fprintln(w, "  warning: the body has syntax errors, description may be incomplete")
	}

	if len(info.Params) > 0 {
		fmt.Fprintln(w, "  parameters:")
		for _, p := range info.Params {
			fmt.Fprintf(w, "    %s\n", formatParam(p))
		}
	}
	if info.ReturnType != "" {
		fmt.Fprintf(w, "  returns: %s\n", info.ReturnType)
	}
	if len(info.Decorators) > 0 {
		fmt.Fprintf(w, "  decorators: @%s\n", strings.Join(info.Decorators, ", @"))
	}
	if info.Docstring != "" {
		fmt.Fprintln(w, "  docstring:")
		for _, line := range strings.Split(info.Docstring, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintf(w, "  calls: %s\n", formatResults(d.Callees))
	fmt.Fprintf(w, "  called by: %s\n", formatResults(d.Callers))
	return nil
}

func formatParam(p parsers.Param) string {
	var b strings.Builder
	switch p.Kind {
	case parsers.ParamVarPositional:
		b.WriteString("*")
	case parsers.ParamVarKeyword:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Type != "" {
		b.WriteString(": " + p.Type)
	}
	if p.Default != "" {
		b.WriteString(" = " + p.Default)
	}
	return b.String()
}

func formatResults(results []callgraph.Result) string {
	if len(results) == 0 {
		return "-"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		if r.Depth > 1 {
			parts[i] = fmt.Sprintf("%s (depth %d)", r.Node.Name, r.Depth)
		} else {
			parts[i] = r.Node.Name
		}
	}
	return strings.Join(parts, ", ")
}
