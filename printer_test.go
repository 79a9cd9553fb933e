package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/schollz/progressbar/v3"
)

func TestPrinter_EchoWorkingWithSpinner(t *testing.T) {
	var out, status bytes.Buffer
	p := NewPrinter(&out, &status)
	p.EchoWorking()
	p.bar = progressbar.NewOptions(-1, progressbar.OptionSetWriter(io.Discard))

	p.Observe(ProbeResult{Candidate: "10.0.0.1:9999", Reason: ReasonConnect, Err: errors.New("refused")})
	p.Observe(ProbeResult{Candidate: "10.0.0.2:9999", OK: true, Body: []byte("{\"origin\": \"10.0.0.2\"}\n")})
	p.Report(Report{State: StateDoneSummary, Attempted: 2, Succeeded: 1})

	want := "{\"origin\": \"10.0.0.2\"}\nGood proxies ---> 1\n"
	if out.String() != want {
		t.Errorf("out = %q, want %q", out.String(), want)
	}
	if status.Len() != 0 {
		t.Errorf("status = %q, want nothing while the spinner runs", status.String())
	}
}

func TestPrinter_NoEchoByDefault(t *testing.T) {
	var out, status bytes.Buffer
	p := NewPrinter(&out, &status)

	p.Observe(ProbeResult{Candidate: "10.0.0.2:9999", OK: true, Body: []byte(`{"origin": "10.0.0.2"}`)})

	if out.Len() != 0 {
		t.Errorf("out = %q, want nothing", out.String())
	}
	if !strings.Contains(status.String(), "[+] Proxy 10.0.0.2:9999 is working!") {
		t.Errorf("status = %q", status.String())
	}
}
