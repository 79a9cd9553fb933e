package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mmpx12/optionparser"
)

const listFetchTimeout = 30 * time.Second

func openSource(ctx context.Context, cfg Config) (Source, io.Closer, error) {
	if cfg.ProxyListURL != "" {
		client := &http.Client{Timeout: listFetchTimeout}
		return FetchSource(ctx, client, cfg.ProxyListURL)
	}
	return OpenCSVSource(cfg.ProxyFile)
}

// Run validates the configured proxies and prints the outcome. Whatever the
// proxies do, it only fails on configuration or source errors.
func Run(ctx context.Context, cfg Config, out, status io.Writer, progress bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	prober, err := NewHTTPProber(cfg.Endpoint, cfg.EffectiveTimeout(), cfg.Schemes()...)
	if err != nil {
		return err
	}

	printer := NewPrinter(out, status)

	if cfg.Mode == ModeSingle {
		printer.Single(prober.Probe(ctx, ProxyCandidate(cfg.Proxy)))
		return nil
	}

	src, closer, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.Policy() == PolicyExhaustive {
		printer.EchoWorking()
		if progress {
			printer.EnableProgress()
		}
	}

	validator := NewValidator(prober, cfg.Policy(), WithObserver(printer.Observe))

	report, err := validator.Run(ctx, src)
	if err != nil {
		return err
	}

	printer.Report(report)

	if cfg.OutputFile != "" {
		if err := writeProxiesToFile(cfg.OutputFile, report.Working); err != nil {
			return fmt.Errorf("error writing working proxies: %w", err)
		}
	}

	return nil
}

func main() {
	var file, listUrl, proxyAddr, endpoint, timeout, mode, output, verbose string
	var httpOnly, help bool

	cfg, err := LoadConfig()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	op := optionparser.NewOptionParser()
	op.Banner = figure.NewFigure("proxy-validator", "", true).String() + "\nUsage: proxy-validator [OPTIONS]\n"
	op.On("-f", "--file FILE", "CSV file with one proxy per row (default proxies.csv)", &file)
	op.On("-u", "--url URL", "Fetch the proxy list from URL instead of a file", &listUrl)
	op.On("-p", "--proxy ADDR", "Proxy address for single mode", &proxyAddr)
	op.On("-e", "--endpoint URL", "Echo endpoint (default "+DefaultEndpoint+")", &endpoint)
	op.On("-t", "--timeout SEC", "Probe timeout (default 3s, 10s in single mode)", &timeout)
	op.On("-m", "--mode MODE", "first, all or single (default first)", &mode)
	op.On("-o", "--output FILE", "Write working proxies to FILE", &output)
	op.On("-H", "--http-only", "Route only http requests through the proxy", &httpOnly)
	op.On("-v", "--verbose LEVEL", "Log verbosity 0-4", &verbose)
	op.On("-h", "--help", "Show this help", &help)

	if err := op.Parse(); err != nil {
		color.Red("Error: %v", err)
		op.Help()
		os.Exit(1)
	}
	if help {
		op.Help()
		os.Exit(0)
	}

	for _, opt := range []struct{ name, value string }{
		{"file", file},
		{"url", listUrl},
		{"proxy", proxyAddr},
		{"endpoint", endpoint},
		{"timeout", timeout},
		{"mode", mode},
		{"output", output},
		{"verbose", verbose},
	} {
		if opt.value == "" {
			continue
		}
		if err := cfg.Set(opt.name, opt.value); err != nil {
			color.Red("Error: %v", err)
			os.Exit(1)
		}
	}
	if httpOnly {
		cfg.HTTPOnly = true
	}
	cfg.UseSingleForProxy()

	initLogger(cfg.Verbosity, os.Stderr)

	progress := cfg.Verbosity == 0 && isatty.IsTerminal(os.Stderr.Fd())

	if err := Run(context.Background(), cfg, os.Stdout, os.Stderr, progress); err != nil {
		logErrorf("Run failed: %v", err)
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	os.Exit(0)
}
