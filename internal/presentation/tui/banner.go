package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Sluice.
func PrintBanner(w io.Writer) {
	o := termenv.NewOutput(w)
	// Blue to teal, top to bottom.
	lines := []struct{ text, color string }{
		{"      _       _          ", "#60a5fa"},
		{"  ___| |_   _(_) ___ ___ ", "#38bdf8"},
		{" / __| | | | | |/ __/ _ \\", "#22d3ee"},
		{" \\__ \\ | |_| | | (_|  __/", "#2dd4bf"},
		{" |___/_|\\__,_|_|\\___\\___|", "#34d399"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, o.String(l.text).Foreground(o.Color(l.color)))
	}
	fmt.Fprintln(w)
}
