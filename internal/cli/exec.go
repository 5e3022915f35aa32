package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var execKwargsFlag string

var execCmd = &cobra.Command{
	Use:   "exec <notebook> <function> [args...]",
	Short: "Call a notebook function in a Python interpreter",
	Long: `Exec evaluates the notebook's imports and function definitions in a fresh
Python interpreter and calls <function>. Each argument is parsed as JSON; an
argument that is not valid JSON is passed as a string. The result is printed
as JSON, or as its repr when it cannot be encoded.

The interpreter is the embedded Python runtime unless python.runtime is set
to "system" in .nbfunc/config.yml.

Examples:
  nbfunc exec analysis.ipynb factorial 5
  nbfunc exec analysis.ipynb saludo Ana
  nbfunc exec analysis.ipynb suma --kwargs '{"a": 2, "b": 3}'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execKwargsFlag, "kwargs", "", "keyword arguments as a JSON object")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	callArgs, kwargs, err := parseCallArgs(args[2:], execKwargsFlag)
	if err != nil {
		return err
	}

	idx, err := openNotebook(args[0])
	if err != nil {
		return err
	}
	if !idx.Exists(args[1]) {
		// Fail before paying for interpreter startup
		_, err := idx.BodyFor(args[1])
		return err
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := loadConfig(projectPath)
	if err != nil {
		return err
	}

	b, err := newBridge(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := b.Exec(ctx, idx, args[1], callArgs, kwargs)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), result)
}

// parseCallArgs decodes positional arguments and the --kwargs object.
func parseCallArgs(raw []string, kwargsJSON string) ([]any, map[string]any, error) {
	args := make([]any, len(raw))
	for i, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		args[i] = v
	}

	if kwargsJSON == "" {
		return args, nil, nil
	}
	var kwargs map[string]any
	if err := json.Unmarshal([]byte(kwargsJSON), &kwargs); err != nil {
		return nil, nil, fmt.Errorf("--kwargs must be a JSON object: %w", err)
	}
	return args, kwargs, nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}
	fmt.Fprintln(w, buf.String())
	return nil
}
