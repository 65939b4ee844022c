package main

import (
	"io"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer writes human-readable status lines.
type printer struct {
	w     io.Writer
	p     *message.Printer
	ok    *color.Color
	fail  *color.Color
	label *color.Color
	dim   *color.Color
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:     w,
		p:     message.NewPrinter(language.English),
		ok:    color.New(color.FgGreen, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		label: color.New(color.FgCyan),
		dim:   color.New(color.FgHiBlack),
	}
}

func (p *printer) header(format string, args ...any) {
	p.label.Fprintln(p.w, p.p.Sprintf(format, args...))
}

func (p *printer) success(format string, args ...any) {
	p.ok.Fprint(p.w, "ok   ")
	p.p.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) failure(format string, args ...any) {
	p.fail.Fprint(p.w, "FAIL ")
	p.p.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) detail(format string, args ...any) {
	p.dim.Fprintln(p.w, "     "+p.p.Sprintf(format, args...))
}
