package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/voyagen/stationvault/internal/models"
)

const (
	styleReset = "\x1b[0m"
	styleLabel = "\x1b[36m" // cyan
	styleError = "\x1b[31m" // red
	styleDim   = "\x1b[2m"
)

// console writes command output, coloring labels when w is a terminal and
// NO_COLOR is unset.
type console struct {
	w     io.Writer
	color bool
}

func newConsole(w io.Writer) *console {
	return &console{w: w, color: colorEnabled(w)}
}

// colorEnabled reports whether w is a terminal and the user has not opted
// out through NO_COLOR (https://no-color.org) or TERM=dumb.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *console) paint(style, s string) string {
	if !c.color {
		return s
	}
	return style + s + styleReset
}

func (c *console) line(format string, args ...any) {
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *console) field(label, value string) {
	fmt.Fprintf(c.w, "%s %s\n", c.paint(styleLabel, label+":"), value)
}

// detail prints a rendered station detail, coloring the label column.
func (c *console) detail(text string) {
	for _, ln := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		label, value, ok := strings.Cut(ln, ":")
		if !ok {
			fmt.Fprintln(c.w, ln)
			continue
		}
		fmt.Fprintf(c.w, "%s%s\n", c.paint(styleLabel, label+":"), value)
	}
}

func (c *console) stations(sts []models.Station) {
	if len(sts) == 0 {
		fmt.Fprintln(c.w, c.paint(styleDim, "no matches"))
		return
	}
	for i := range sts {
		st := &sts[i]
		fmt.Fprintf(c.w, "%-12s %-10s %s\n", st.DisplayID(), st.DisplayCallSign(), st.DisplayName())
	}
	fmt.Fprintln(c.w, c.paint(styleDim, fmt.Sprintf("%d match(es)", len(sts))))
}
