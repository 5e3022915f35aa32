package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/internal/callgraph"
	"github.com/mvp-joe/notebook-functions/internal/discovery"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/internal/search"
)

// Tools holds what the notebook tools need. Notebook arguments are
// resolved against RootDir.
type Tools struct {
	RootDir      string
	Loader       search.NotebookLoader
	Parser       *parsers.PythonParser
	Searcher     search.Searcher
	Bridge       *bridge.Bridge // nil leaves notebook_exec_function out
	DefaultLimit int
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ListFunctionsResponse is returned by notebook_list_functions.
type ListFunctionsResponse struct {
	Notebook  string   `json:"notebook"`
	Functions []string `json:"functions"`
	Total     int      `json:"total"`
}

// ListImportsResponse is returned by notebook_list_imports.
type ListImportsResponse struct {
	Notebook string   `json:"notebook"`
	Imports  []string `json:"imports"`
	Total    int      `json:"total"`
}

// FunctionSourceResponse is returned by notebook_function_source.
type FunctionSourceResponse struct {
	Notebook string `json:"notebook"`
	Name     string `json:"name"`
	Source   string `json:"source"`
}

// FunctionBodyResponse is returned by notebook_function_body.
type FunctionBodyResponse struct {
	Notebook    string `json:"notebook"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	Cell        int    `json:"cell"`
	Line        int    `json:"line"`
	Definitions int    `json:"definitions"`
}

// DescribeFunctionResponse is returned by notebook_describe_function.
type DescribeFunctionResponse struct {
	Notebook string                `json:"notebook"`
	Name     string                `json:"name"`
	Cell     int                   `json:"cell"`
	Line     int                   `json:"line"`
	Info     *parsers.FunctionInfo `json:"info"`
	Callees  []callgraph.Result    `json:"callees"`
	Callers  []callgraph.Result    `json:"callers"`
	Body     string                `json:"body,omitempty"`
}

// SearchResponse is returned by notebook_search.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []*search.Result `json:"results"`
	Total   int              `json:"total"`
}

// ExecFunctionResponse is returned by notebook_exec_function.
type ExecFunctionResponse struct {
	Notebook string          `json:"notebook"`
	Name     string          `json:"name"`
	Result   json.RawMessage `json:"result"`
}

// AddNotebookTools registers every notebook tool with an MCP server.
func AddNotebookTools(s *server.MCPServer, t *Tools) {
	notebookArg := mcp.WithString("notebook",
		mcp.Required(),
		mcp.Description("Notebook path, absolute or relative to the project root"))
	nameArg := mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Function name as written after def"))

	s.AddTool(mcp.NewTool(
		"notebook_list_functions",
		mcp.WithDescription("List the names of the top-level functions defined in a Jupyter notebook's code cells."),
		notebookArg,
		mcp.WithString("match",
			mcp.Description("Optional glob to filter names (e.g. 'load_*')")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.listFunctionsHandler())

	s.AddTool(mcp.NewTool(
		"notebook_list_imports",
		mcp.WithDescription("List the distinct top-level import statements of a notebook."),
		notebookArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), t.listImportsHandler())

	s.AddTool(mcp.NewTool(
		"notebook_function_source",
		mcp.WithDescription("Return self-contained source for a function: the notebook's imports followed by every function body in document order."),
		notebookArg,
		nameArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), t.functionSourceHandler())

	s.AddTool(mcp.NewTool(
		"notebook_function_body",
		mcp.WithDescription("Return the text of the last definition of a function in a notebook."),
		notebookArg,
		nameArg,
		mcp.WithReadOnlyHintAnnotation(true),
	), t.functionBodyHandler())

	s.AddTool(mcp.NewTool(
		"notebook_describe_function",
		mcp.WithDescription("Describe a notebook function: signature, parameters, return annotation, docstring, decorators, and which notebook functions it calls or is called by."),
		notebookArg,
		nameArg,
		mcp.WithNumber("depth",
			mcp.Description(fmt.Sprintf("Call graph traversal depth (default: %d, max: %d)", callgraph.DefaultDepth, callgraph.MaxDepth))),
		mcp.WithBoolean("include_body",
			mcp.Description("Include the function body (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.describeFunctionHandler())

	s.AddTool(mcp.NewTool(
		"notebook_search",
		mcp.WithDescription("Full-text search over the functions of every notebook in the project. Supports query string syntax: field scoping (name:, docstring:, body:), boolean operators, phrases, wildcards and fuzzy terms."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g. 'factorial', 'docstring:suma', 'name:load_*')")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results to return (1-%d, default: %d)", search.MaxLimit, t.defaultLimit()))),
		mcp.WithString("notebook",
			mcp.Description("Only search this notebook")),
		mcp.WithReadOnlyHintAnnotation(true),
	), t.searchHandler())

	if t.Bridge == nil {
		return
	}

	s.AddTool(mcp.NewTool(
		"notebook_exec_function",
		mcp.WithDescription("Evaluate a notebook function in a Python interpreter and call it with JSON arguments. Returns the JSON result, or the repr of results that are not JSON."),
		notebookArg,
		nameArg,
		mcp.WithArray("args",
			mcp.Description("Positional arguments as JSON values")),
		mcp.WithObject("kwargs",
			mcp.Description("Keyword arguments as a JSON object")),
		mcp.WithDestructiveHintAnnotation(false),
	), t.execFunctionHandler())
}

func (t *Tools) defaultLimit() int {
	if t.DefaultLimit <= 0 {
		return search.DefaultLimit
	}
	return t.DefaultLimit
}

// notebookArgs parses the notebook argument, plus the function name when
// withName is set.
func (t *Tools) notebookArgs(argsMap map[string]interface{}, withName bool) (path, name string, err error) {
	nb, err := parseStringArg(argsMap, "notebook", true)
	if err != nil {
		return "", "", err
	}
	if withName {
		if name, err = parseStringArg(argsMap, "name", true); err != nil {
			return "", "", err
		}
	}
	return resolveNotebook(t.RootDir, nb), name, nil
}

func (t *Tools) listFunctionsHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, _, err := t.notebookArgs(argsMap, false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		match, err := parseStringArg(argsMap, "match", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter, err := discovery.NewNameFilter(match)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid match pattern: %v", err)), nil
		}

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}

		names := filter.Filter(idx.ListNames())
		return marshalToolResponse(&ListFunctionsResponse{
			Notebook:  path,
			Functions: names,
			Total:     len(names),
		})
	}
}

func (t *Tools) listImportsHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, _, err := t.notebookArgs(argsMap, false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}

		imports := idx.ListImports()
		return marshalToolResponse(&ListImportsResponse{
			Notebook: path,
			Imports:  imports,
			Total:    len(imports),
		})
	}
}

func (t *Tools) functionSourceHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, name, err := t.notebookArgs(argsMap, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}
		source, err := idx.SourceFor(name)
		if err != nil {
			return toolError(err)
		}

		return marshalToolResponse(&FunctionSourceResponse{
			Notebook: path,
			Name:     name,
			Source:   source,
		})
	}
}

func (t *Tools) functionBodyHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, name, err := t.notebookArgs(argsMap, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}
		rec, err := idx.Authoritative(name)
		if err != nil {
			return toolError(err)
		}

		return marshalToolResponse(&FunctionBodyResponse{
			Notebook:    path,
			Name:        name,
			Body:        rec.Body,
			Cell:        rec.Cell,
			Line:        rec.Line,
			Definitions: len(idx.Definitions(name)),
		})
	}
}

func (t *Tools) describeFunctionHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, name, err := t.notebookArgs(argsMap, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		depth := parseClampedInt(argsMap, "depth", callgraph.DefaultDepth, 1, callgraph.MaxDepth)
		includeBody := parseBoolArg(argsMap, "include_body", false)

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}
		rec, err := idx.Authoritative(name)
		if err != nil {
			return toolError(err)
		}

		info, err := t.Parser.Describe(ctx, rec.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", name, err)
		}

		g, err := callgraph.Build(ctx, idx, t.Parser)
		if err != nil {
			return nil, fmt.Errorf("failed to build call graph: %w", err)
		}
		callees, err := g.Callees(name, depth)
		if err != nil {
			return toolError(err)
		}
		callers, err := g.Callers(name, depth)
		if err != nil {
			return toolError(err)
		}

		response := &DescribeFunctionResponse{
			Notebook: path,
			Name:     name,
			Cell:     rec.Cell,
			Line:     rec.Line,
			Info:     info,
			Callees:  callees,
			Callers:  callers,
		}
		if includeBody {
			response.Body = rec.Body
		}
		return marshalToolResponse(response)
	}
}

func (t *Tools) searchHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		query, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		nb, err := parseStringArg(argsMap, "notebook", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		options := &search.Options{
			Limit: parseClampedInt(argsMap, "limit", t.defaultLimit(), 1, search.MaxLimit),
		}
		if nb != "" {
			options.Notebook = resolveNotebook(t.RootDir, nb)
		}

		results, err := t.Searcher.Search(ctx, query, options)
		if err != nil {
			// Mostly query syntax errors the caller can fix
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return marshalToolResponse(&SearchResponse{
			Query:   query,
			Results: results,
			Total:   len(results),
		})
	}
}

func (t *Tools) execFunctionHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, name, err := t.notebookArgs(argsMap, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args, err := parseValuesArg(argsMap, "args")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kwargs, err := parseObjectArg(argsMap, "kwargs")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx, err := t.Loader.Load(path)
		if err != nil {
			return toolError(err)
		}
		result, err := t.Bridge.Exec(ctx, idx, name, args, kwargs)
		if err != nil {
			return toolError(err)
		}

		return marshalToolResponse(&ExecFunctionResponse{
			Notebook: path,
			Name:     name,
			Result:   result,
		})
	}
}
