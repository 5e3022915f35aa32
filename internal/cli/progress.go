package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// catalogProgress reports catalog progress with a progress bar.
type catalogProgress struct {
	quiet     bool
	w         io.Writer
	bar       *progressbar.ProgressBar
	startTime time.Time
}

func newCatalogProgress(w io.Writer, quiet bool) *catalogProgress {
	return &catalogProgress{
		quiet:     quiet,
		w:         w,
		startTime: time.Now(),
	}
}

func (c *catalogProgress) OnDiscoveryComplete(notebooks int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, "Cataloging %s notebook(s)\n", formatNumber(notebooks))

	c.bar = progressbar.NewOptions(notebooks,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Reading notebooks"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("notebooks/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.w)
		}),
	)
}

func (c *catalogProgress) OnNotebookProcessed() {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Add(1)
}

func (c *catalogProgress) OnComplete(summary *CatalogSummary) {
	if c.quiet {
		return
	}
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}

	fmt.Fprintf(c.w, "✓ Catalog complete in %.1fs: %s functions in %s notebooks\n",
		time.Since(c.startTime).Seconds(),
		formatNumber(summary.Functions), formatNumber(summary.Notebooks))
	fmt.Fprintf(c.w, "  Updated:   %s\n", formatNumber(summary.Updated))
	fmt.Fprintf(c.w, "  Unchanged: %s\n", formatNumber(summary.Unchanged))
	if summary.Pruned > 0 {
		fmt.Fprintf(c.w, "  Removed:   %s\n", formatNumber(summary.Pruned))
	}
	if summary.Failed > 0 {
		fmt.Fprintf(c.w, "  Failed:    %s\n", formatNumber(summary.Failed))
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
