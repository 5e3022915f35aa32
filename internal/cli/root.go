package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nbfunc",
	Short: "Extract and run the functions defined in Jupyter notebooks",
	Long: `nbfunc reads the code cells of Jupyter notebooks and treats every top-level
def as a reusable function.

It can list the functions and imports of a notebook, print their source,
describe their signatures and call relationships, search across notebooks,
keep a SQLite catalog of a notebook collection, call a function in a Python
interpreter, and serve all of this to coding assistants over MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .nbfunc/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initLogging sends diagnostics to stderr, keeping stdout for results.
func initLogging() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("nbfunc: ")
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
}

// loadConfig reads --config when given, otherwise .nbfunc/config.yml
// under rootDir, layered over defaults and NBFUNC_* variables.
func loadConfig(rootDir string) (*config.Config, error) {
	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(cfgFile)
	} else {
		loader = config.NewLoader(rootDir)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		log.Printf("Python runtime: %s, timeout: %v", cfg.Python.Runtime, cfg.Python.Timeout)
	}
	return cfg, nil
}
