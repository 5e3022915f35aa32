package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/internal/cache"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/internal/search"
)

// Test Plan for notebook tools:
// - AddNotebookTools registers with and without a bridge
// - list_functions returns sorted names, filters by glob, resolves relative paths
// - list_imports returns the distinct top-level imports
// - function_source starts with the imports and carries every body
// - function_body returns the last definition with its position
// - describe_function reports signature, docstring and call graph neighbours
// - search finds functions by name and docstring, honours notebook filter
// - exec_function calls through a real interpreter (skipped without python3)
// - Missing notebooks, unknown names and bad arguments are error results

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata", "notebooks"))
	require.NoError(t, err)
	return dir
}

func newTestTools(t *testing.T) *Tools {
	t.Helper()

	indexCache, err := cache.NewIndexCache(8, 0)
	require.NoError(t, err)
	t.Cleanup(indexCache.Close)

	searcher, err := search.NewSearcher()
	require.NoError(t, err)
	t.Cleanup(func() { searcher.Close() })

	parser := parsers.NewPythonParser()
	root := fixtureDir(t)

	indexer := search.NewIndexer(indexCache, searcher, parser)
	require.NoError(t, indexer.Reload(context.Background(), []string{
		filepath.Join(root, "functions.ipynb"),
		filepath.Join(root, "empty.ipynb"),
	}))

	return &Tools{
		RootDir:  root,
		Loader:   indexCache,
		Parser:   parser,
		Searcher: searcher,
	}
}

func callTool(t *testing.T, handler toolHandler, args interface{}) *mcp.CallToolResult {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result, "should return result")
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return textContent.Text
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, "unexpected error result: %s", resultText(t, result))

	var response T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response), "should parse response JSON")
	return response
}

func TestAddNotebookTools(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)

	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	AddNotebookTools(mcpServer, tools)
	assert.NotNil(t, mcpServer)

	withBridge := *tools
	withBridge.Bridge = &bridge.Bridge{}
	AddNotebookTools(server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true)), &withBridge)
}

func TestListFunctionsHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)
	handler := tools.listFunctionsHandler()

	t.Run("all names sorted", func(t *testing.T) {
		response := decodeResult[ListFunctionsResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": filepath.Join(tools.RootDir, "functions.ipynb"),
		}))

		assert.Equal(t, []string{"area", "factorial", "multiplicar", "saludo", "suma", "total"}, response.Functions)
		assert.Equal(t, 6, response.Total)
	})

	t.Run("relative path and glob", func(t *testing.T) {
		response := decodeResult[ListFunctionsResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"match":    "s*",
		}))

		assert.Equal(t, filepath.Join(tools.RootDir, "functions.ipynb"), response.Notebook)
		assert.Equal(t, []string{"saludo", "suma"}, response.Functions)
	})

	t.Run("empty notebook", func(t *testing.T) {
		response := decodeResult[ListFunctionsResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": "empty.ipynb",
		}))

		assert.Empty(t, response.Functions)
		assert.Zero(t, response.Total)
	})

	t.Run("invalid glob", func(t *testing.T) {
		result := callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"match":    "[unclosed",
		})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "invalid match pattern")
	})
}

func TestNotebookTools_ArgumentErrors(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)

	tests := []struct {
		name    string
		handler toolHandler
		args    interface{}
		want    string
	}{
		{"arguments not an object", tools.listImportsHandler(), "functions.ipynb", "invalid arguments format"},
		{"missing notebook", tools.listImportsHandler(), map[string]interface{}{}, "notebook parameter is required"},
		{"notebook not a string", tools.listFunctionsHandler(), map[string]interface{}{"notebook": 3.0}, "notebook must be a string"},
		{"missing name", tools.functionBodyHandler(), map[string]interface{}{"notebook": "functions.ipynb"}, "name parameter is required"},
		{"empty name", tools.functionSourceHandler(), map[string]interface{}{"notebook": "functions.ipynb", "name": ""}, "name cannot be empty"},
		{"missing query", tools.searchHandler(), map[string]interface{}{}, "query parameter is required"},
		{"missing notebook file", tools.listFunctionsHandler(), map[string]interface{}{"notebook": "missing.ipynb"}, "error opening the notebook"},
		{"unknown function", tools.functionBodyHandler(), map[string]interface{}{"notebook": "functions.ipynb", "name": "funcion_inventada"}, "doesn't exist in the notebook"},
		{"unknown function source", tools.functionSourceHandler(), map[string]interface{}{"notebook": "functions.ipynb", "name": "funcion_inventada"}, "doesn't exist in the notebook"},
		{"unknown function describe", tools.describeFunctionHandler(), map[string]interface{}{"notebook": "functions.ipynb", "name": "funcion_inventada"}, "doesn't exist in the notebook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, tt.handler, tt.args)

			assert.True(t, result.IsError, "should be error result")
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestListImportsHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)

	response := decodeResult[ListImportsResponse](t, callTool(t, tools.listImportsHandler(), map[string]interface{}{
		"notebook": "functions.ipynb",
	}))

	assert.ElementsMatch(t, []string{"import math\n", "from functools import reduce\n"}, response.Imports)
	assert.Equal(t, 2, response.Total)
}

func TestFunctionSourceHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)

	response := decodeResult[FunctionSourceResponse](t, callTool(t, tools.functionSourceHandler(), map[string]interface{}{
		"notebook": "functions.ipynb",
		"name":     "factorial",
	}))

	idx, err := tools.Loader.Load(filepath.Join(tools.RootDir, "functions.ipynb"))
	require.NoError(t, err)

	assert.Equal(t, "factorial", response.Name)
	assert.True(t, strings.HasPrefix(response.Source, idx.ImportSource()))
	for _, rec := range idx.Records() {
		assert.Contains(t, response.Source, rec.Body)
	}
}

func TestFunctionBodyHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)

	response := decodeResult[FunctionBodyResponse](t, callTool(t, tools.functionBodyHandler(), map[string]interface{}{
		"notebook": "functions.ipynb",
		"name":     "suma",
	}))

	assert.True(t, strings.HasPrefix(response.Body, "def suma("))
	assert.Contains(t, response.Body, "a + b + 0")
	assert.Equal(t, 4, response.Cell)
	assert.Equal(t, 90, response.Line)
	assert.Equal(t, 2, response.Definitions)
}

func TestDescribeFunctionHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)
	handler := tools.describeFunctionHandler()

	t.Run("callees and callers", func(t *testing.T) {
		response := decodeResult[DescribeFunctionResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"name":     "factorial",
		}))

		require.NotNil(t, response.Info)
		assert.Equal(t, "factorial", response.Info.Name)
		assert.Equal(t, "factorial(n)", response.Info.Signature)
		assert.Equal(t, 1, response.Cell)
		assert.Equal(t, 49, response.Line)
		assert.Empty(t, response.Body)

		require.Len(t, response.Callees, 1)
		assert.Equal(t, "multiplicar", response.Callees[0].Node.Name)
		assert.Equal(t, 1, response.Callees[0].Depth)
		assert.Empty(t, response.Callers, "recursion is not a caller")
	})

	t.Run("callers and body", func(t *testing.T) {
		response := decodeResult[DescribeFunctionResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook":     "functions.ipynb",
			"name":         "multiplicar",
			"depth":        float64(3),
			"include_body": true,
		}))

		require.Len(t, response.Callers, 1)
		assert.Equal(t, "factorial", response.Callers[0].Node.Name)
		assert.True(t, strings.HasPrefix(response.Body, "def multiplicar("))
	})
}

func TestSearchHandler(t *testing.T) {
	t.Parallel()

	tools := newTestTools(t)
	handler := tools.searchHandler()

	t.Run("by name", func(t *testing.T) {
		response := decodeResult[SearchResponse](t, callTool(t, handler, map[string]interface{}{
			"query": "name:factorial",
		}))

		require.NotEmpty(t, response.Results)
		assert.Equal(t, "factorial", response.Results[0].Document.Name)
		assert.Equal(t, len(response.Results), response.Total)
	})

	t.Run("limit", func(t *testing.T) {
		response := decodeResult[SearchResponse](t, callTool(t, handler, map[string]interface{}{
			"query": "def",
			"limit": float64(2),
		}))

		assert.LessOrEqual(t, response.Total, 2)
	})

	t.Run("notebook filter", func(t *testing.T) {
		response := decodeResult[SearchResponse](t, callTool(t, handler, map[string]interface{}{
			"query":    "name:factorial",
			"notebook": "empty.ipynb",
		}))

		assert.Empty(t, response.Results)
	})
}

func TestExecFunctionHandler(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping interpreter test in short mode")
	}

	env, err := bridge.NewSystemPython("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	b := bridge.New(env, bridge.Options{Timeout: 30 * time.Second})
	t.Cleanup(func() { b.Close() })

	tools := newTestTools(t)
	tools.Bridge = b
	handler := tools.execFunctionHandler()

	t.Run("positional", func(t *testing.T) {
		response := decodeResult[ExecFunctionResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"name":     "factorial",
			"args":     []interface{}{float64(5)},
		}))

		assert.JSONEq(t, "120", string(response.Result))
	})

	t.Run("keyword", func(t *testing.T) {
		response := decodeResult[ExecFunctionResponse](t, callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"name":     "suma",
			"kwargs":   map[string]interface{}{"a": float64(2), "b": float64(3)},
		}))

		assert.JSONEq(t, "5", string(response.Result))
	})

	t.Run("python exception", func(t *testing.T) {
		result := callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"name":     "factorial",
			"args":     []interface{}{"cinco"},
		})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "TypeError")
	})

	t.Run("bad args", func(t *testing.T) {
		result := callTool(t, handler, map[string]interface{}{
			"notebook": "functions.ipynb",
			"name":     "factorial",
			"args":     "5",
		})

		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "args must be an array")
	})
}
