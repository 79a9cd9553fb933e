package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// Printer writes the human-readable outcome of a run. Results go to out,
// per-probe status lines go to status.
type Printer struct {
	out    io.Writer
	status io.Writer
	bar    *progressbar.ProgressBar
	echo   bool
}

func NewPrinter(out, status io.Writer) *Printer {
	return &Printer{out: out, status: status}
}

// EnableProgress replaces per-probe lines with a spinner on the terminal.
func (p *Printer) EnableProgress() {
	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ansi.NewAnsiStderr()),
		progressbar.OptionSetDescription("probing proxies"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// EchoWorking makes Observe write the body of every working candidate to
// out as it arrives, spinner or not.
func (p *Printer) EchoWorking() {
	p.echo = true
}

// Observe is meant to be passed to WithObserver.
func (p *Printer) Observe(result ProbeResult) {
	if p.echo && result.OK {
		fmt.Fprintln(p.out, strings.TrimSpace(string(result.Body)))
	}

	if p.bar != nil {
		p.bar.Add(1)
		if result.OK {
			p.bar.Describe(fmt.Sprintf("last working: %s", result.Candidate))
		}
		return
	}

	if result.OK {
		green.Fprintf(p.status, "[+] Proxy %s is working! (%s)\n", result.Candidate, result.Latency.Round(time.Millisecond))
		return
	}
	red.Fprintf(p.status, "[-] Proxy %s is not working (%s): %v\n", result.Candidate, result.Reason, result.Err)
}

func (p *Printer) Report(report Report) {
	if p.bar != nil {
		p.bar.Finish()
	}

	switch report.State {
	case StateDoneWithSuccess:
		fmt.Fprintln(p.out, strings.TrimSpace(string(report.Success.Body)))
	case StateDoneExhausted:
		yellow.Fprintln(p.out, "proxy list exhausted")
	case StateDoneSummary:
		fmt.Fprintln(p.out, "Good proxies --->", report.Succeeded)
	}
}

// Single prints the outcome of a one-off probe.
func (p *Printer) Single(result ProbeResult) {
	if result.OK {
		fmt.Fprintln(p.out, strings.TrimSpace(string(result.Body)))
		return
	}
	red.Fprintf(p.out, "Unable to connect to the proxy: %s (%v)\n", result.Reason, result.Err)
}
