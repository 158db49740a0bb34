package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"

	"github.com/aretw0/sluice/internal/runtime"
)

// PrintSummary reports a finished migration. Colors are dropped when w is not a terminal.
func PrintSummary(w io.Writer, name string, sum runtime.Summary, elapsed time.Duration) {
	o := termenv.NewOutput(w)
	if name == "" {
		name = "migration"
	}

	status := o.String("done").Foreground(o.Color("#34d399")).Bold()
	if sum.Stopped {
		status = o.String("stopped").Foreground(o.Color("#fbbf24")).Bold()
	}

	fmt.Fprintf(w, "%s %s in %s\n", o.String(name).Bold(), status, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  read     %d\n", sum.Read)
	fmt.Fprintf(w, "  emitted  %d\n", sum.Emitted)
	if sum.Skipped > 0 {
		fmt.Fprintf(w, "  skipped  %s\n", o.String(fmt.Sprint(sum.Skipped)).Foreground(o.Color("#fbbf24")))
	}
}

// PrintFailure reports a migration halted by err.
func PrintFailure(w io.Writer, name string, sum runtime.Summary, err error) {
	o := termenv.NewOutput(w)
	if name == "" {
		name = "migration"
	}
	fmt.Fprintf(w, "%s %s after %d records: %v\n",
		o.String(name).Bold(), o.String("failed").Foreground(o.Color("#f87171")).Bold(), sum.Read, err)
}
