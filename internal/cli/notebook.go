package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/discovery"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

var listMatchFlag string

var listCmd = &cobra.Command{
	Use:   "list <notebook>",
	Short: "List the functions defined in a notebook",
	Long: `List prints the name of every top-level function defined in the code cells
of a notebook, one per line, sorted. A name defined more than once is printed once.

Examples:
  nbfunc list analysis.ipynb
  nbfunc list analysis.ipynb --match 'load_*'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.OutOrStdout(), args[0], listMatchFlag)
	},
}

var importsCmd = &cobra.Command{
	Use:   "imports <notebook>",
	Short: "List the top-level import statements of a notebook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImports(cmd.OutOrStdout(), args[0])
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source <notebook> <function>",
	Short: "Print self-contained source for a function",
	Long: `Source prints the notebook's imports followed by every function body in
document order. The output can be evaluated on its own and leaves <function>
bound to its last definition.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSource(cmd.OutOrStdout(), args[0], args[1])
	},
}

var bodyCmd = &cobra.Command{
	Use:   "body <notebook> <function>",
	Short: "Print the last definition of a function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBody(cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	listCmd.Flags().StringVar(&listMatchFlag, "match", "", "only list names matching this glob")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importsCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(bodyCmd)
}

// openNotebook opens path and logs any cells that could not be read.
func openNotebook(path string) (*notebook.Index, error) {
	idx, err := notebook.Open(path)
	if err != nil {
		return nil, err
	}
	for _, d := range idx.Diagnostics() {
		log.Printf("Warning: %s: %v", path, d)
	}
	return idx, nil
}

func runList(w io.Writer, path, match string) error {
	filter, err := discovery.NewNameFilter(match)
	if err != nil {
		return fmt.Errorf("invalid --match pattern: %w", err)
	}

	idx, err := openNotebook(path)
	if err != nil {
		return err
	}

	for _, name := range filter.Filter(idx.ListNames()) {
		fmt.Fprintln(w, name)
	}
	return nil
}

func runImports(w io.Writer, path string) error {
	idx, err := openNotebook(path)
	if err != nil {
		return err
	}

	// Imports already end in a newline
	for _, imp := range idx.ListImports() {
		fmt.Fprint(w, imp)
	}
	return nil
}

func runSource(w io.Writer, path, name string) error {
	idx, err := openNotebook(path)
	if err != nil {
		return err
	}

	source, err := idx.SourceFor(name)
	if err != nil {
		return err
	}
	fmt.Fprint(w, source)
	return nil
}

func runBody(w io.Writer, path, name string) error {
	idx, err := openNotebook(path)
	if err != nil {
		return err
	}

	body, err := idx.BodyFor(name)
	if err != nil {
		return err
	}
	fmt.Fprint(w, body)
	return nil
}
