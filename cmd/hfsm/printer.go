package main

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// printer writes status lines, colored when w is a terminal.
type printer struct {
	out *termenv.Output
}

func newPrinter(w io.Writer) *printer {
	return &printer{out: termenv.NewOutput(w)}
}

func (p *printer) styled(s, color string) string {
	return p.out.String(s).Foreground(p.out.Color(color)).String()
}

func (p *printer) ok(msg string) {
	fmt.Fprintln(p.out, p.styled("✓", "2"), msg)
}

func (p *printer) fail(msg string) {
	fmt.Fprintln(p.out, p.styled("✗", "1"), msg)
}

func (p *printer) step(trigger, snapshot string) {
	fmt.Fprintf(p.out, "%s %s\n", p.styled(fmt.Sprintf("%-12s", trigger), "6"), p.out.String(snapshot).Bold())
}
