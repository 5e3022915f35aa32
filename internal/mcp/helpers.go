package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// parseToolArguments validates and extracts the arguments map from an MCP tool request.
// Returns the arguments map or an error result if validation fails.
func parseToolArguments(request mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("invalid arguments format")
	}
	return argsMap, nil
}

// marshalToolResponse marshals a response object to JSON and returns it as an MCP tool result.
func marshalToolResponse(response interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// toolError turns errors the caller can act on (unknown notebook or
// function, Python failures, timeouts) into error results. Anything else
// is returned as a protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	var evalErr *bridge.EvaluationError
	switch {
	case notebook.IsNotFound(err):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.As(err, &evalErr):
		msg := err.Error()
		if evalErr.Traceback != "" {
			msg += "\n" + evalErr.Traceback
		}
		return mcp.NewToolResultError(msg), nil
	case errors.Is(err, bridge.ErrTimeout), errors.Is(err, bridge.ErrProtocol):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// resolveNotebook makes a notebook argument absolute, relative paths
// being taken from rootDir.
func resolveNotebook(rootDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(rootDir, path)
}
