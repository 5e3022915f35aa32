package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <notebook>",
	Short: "Print a notebook's functions every time it changes",
	Long: `Watch prints the functions of a notebook, then rebuilds the index and prints
them again whenever the file is saved. Rapid successive saves are coalesced
(see watch.debounce). Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// namesPrinter rebuilds a notebook's index on change and prints its names.
type namesPrinter struct {
	path string
	w    io.Writer
}

// Reload implements watcher.Reloadable.
func (p *namesPrinter) Reload(ctx context.Context, changed []string) error {
	idx, err := openNotebook(p.path)
	if err != nil {
		return err
	}

	names := idx.ListNames()
	fmt.Fprintf(p.w, "[%s] %s: %d function(s)\n", time.Now().Format("15:04:05"), p.path, len(names))
	if len(names) > 0 {
		fmt.Fprintf(p.w, "  %s\n", strings.Join(names, ", "))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := loadConfig(cwd)
	if err != nil {
		return err
	}

	printer := &namesPrinter{path: path, w: cmd.OutOrStdout()}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The notebook must be readable to start watching
	if err := printer.Reload(ctx, []string{path}); err != nil {
		return err
	}

	w, err := watcher.NewFileWatcher(cfg.Watch.Debounce, path)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	w.Start(ctx, watcher.ReloadOnChange(ctx, printer))
	defer w.Stop()

	<-ctx.Done()
	return nil
}
