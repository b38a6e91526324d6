// Package ui writes marker-prefixed status lines to stderr. The markers
// ([OK], [WARNING], [ERROR], ...) are plain ASCII so output is readable in
// CI logs and on Windows consoles.
package ui

import (
	"fmt"
	"os"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

// Printer formats status output. A nil *Printer is a valid no-op printer.
type Printer struct {
	// Verbose enables Debugf output.
	Verbose bool
}

func New(verbose bool) *Printer {
	return &Printer{Verbose: verbose}
}

func (p *Printer) Banner(title string) {
	if p == nil {
		return
	}
	fmt.Fprintln(os.Stderr, bold+cyan+"== "+title+" =="+reset)
}

func (p *Printer) Infof(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
}

func (p *Printer) OKf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, green+"[OK]"+reset+" "+format+"\n", args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, yellow+bold+"[WARNING]"+reset+" "+format+"\n", args...)
}

func (p *Printer) Errorf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, red+bold+"[ERROR]"+reset+" "+format+"\n", args...)
}

func (p *Printer) Refreshf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, cyan+"[REFRESH]"+reset+" "+format+"\n", args...)
}

func (p *Printer) Downloadf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, cyan+"[DOWNLOAD]"+reset+" "+format+"\n", args...)
}

func (p *Printer) Serverf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, cyan+"[SERVER]"+reset+" "+format+"\n", args...)
}

// Debugf prints only when verbose output is enabled.
func (p *Printer) Debugf(format string, args ...any) {
	if p == nil || !p.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, dim+format+reset+"\n", args...)
}

// Statf prints a single dash-prefixed statistics line, matching the
// generation summary block.
func (p *Printer) Statf(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "- "+format+"\n", args...)
}
