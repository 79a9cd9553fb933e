package main

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/corpix/uarand"
	"golang.org/x/net/proxy"
)

const (
	DefaultEndpoint = "http://httpbin.org/ip"
	maxEchoBodySize = 1 << 20
)

// Prober performs a single probe through one candidate.
type Prober interface {
	Probe(ctx context.Context, candidate ProxyCandidate) ProbeResult
}

// HTTPProber sends one GET to Endpoint through the candidate proxy for every
// request scheme listed in Schemes.
type HTTPProber struct {
	Endpoint *url.URL
	Timeout  time.Duration
	Schemes  []string
}

func NewHTTPProber(endpoint string, timeout time.Duration, schemes ...string) (*HTTPProber, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("probe timeout must be positive, got %s", timeout)
	}

	endpointUrl, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}

	return &HTTPProber{
		Endpoint: endpointUrl,
		Timeout:  timeout,
		Schemes:  schemes,
	}, nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	endpointUrl, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if endpointUrl.Scheme != "http" && endpointUrl.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if endpointUrl.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return endpointUrl, nil
}

func (p *HTTPProber) routes(scheme string) bool {
	for _, s := range p.Schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

// newTransport builds a fresh transport per probe so nothing is shared
// between candidates.
func (p *HTTPProber) newTransport(proxyUrl *url.URL) (*http.Transport, error) {
	transport := &http.Transport{
		DisableKeepAlives:   true,
		DisableCompression:  true,
		TLSHandshakeTimeout: p.Timeout,
	}

	switch proxyUrl.Scheme {
	case "socks5", "socks5h":
		if !p.routes(p.Endpoint.Scheme) {
			return transport, nil
		}
		dialer, err := proxy.FromURL(proxyUrl, &net.Dialer{Timeout: p.Timeout})
		if err != nil {
			return nil, err
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks dialer for %s does not support contexts", proxyUrl.Host)
		}
		transport.DialContext = contextDialer.DialContext
	default:
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if p.routes(req.URL.Scheme) {
				return proxyUrl, nil
			}
			return nil, nil
		}
	}

	return transport, nil
}

func (p *HTTPProber) Probe(ctx context.Context, candidate ProxyCandidate) ProbeResult {
	result := ProbeResult{Candidate: candidate}

	logDebugf("Checking proxy %s", candidate)

	proxyUrl, err := candidate.URL()
	if err != nil {
		return failed(result, ReasonUnclassified, err)
	}

	transport, err := p.newTransport(proxyUrl)
	if err != nil {
		return failed(result, ReasonUnclassified, err)
	}
	defer transport.CloseIdleConnections()

	ctx, cncl := context.WithTimeout(ctx, p.Timeout)
	defer cncl()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Endpoint.String(), nil)
	if err != nil {
		return failed(result, ReasonUnclassified, err)
	}

	req.Header.Add("User-Agent", uarand.GetRandom())
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return failed(result, classifyError(err), err)
	}
	defer resp.Body.Close()

	logDebugf("Received response with status code %d", resp.StatusCode)
	result.StatusCode = resp.StatusCode

	body, err := readResponseBody(resp)
	if err != nil {
		return failed(result, classifyError(err), err)
	}
	result.Latency = time.Since(start)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return failed(result, ReasonProtocol, fmt.Errorf("echo endpoint returned no JSON object (status %d)", resp.StatusCode))
	}

	var echo EchoResponse
	if raw, ok := fields["origin"]; ok {
		if err := json.Unmarshal(raw, &echo.Origin); err != nil {
			logWarnf("Proxy %s: origin field is not a string: %s", candidate, raw)
		}
	}

	result.OK = true
	result.Body = body
	result.Origin = echo.Origin

	logDebugf("Proxy %s answered in %s with origin %q", candidate, result.Latency, echo.Origin)

	return result
}

func failed(result ProbeResult, reason FailureReason, err error) ProbeResult {
	result.OK = false
	result.Reason = reason
	result.Err = err

	logDebugf("Proxy %s is not working (%s): %v", result.Candidate, reason, err)

	return result
}

// errBodyEncoding marks a body that could not be decoded. Such a body is a
// protocol failure, not a network one.
var errBodyEncoding = errors.New("undecodable response body")

func readResponseBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	switch encoding {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBodyEncoding, err)
		}
		defer gzReader.Close()
		reader = gzReader
	case "deflate":
		zReader, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBodyEncoding, err)
		}
		defer zReader.Close()
		reader = zReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "", "identity":
	default:
		return nil, fmt.Errorf("%w: unsupported Content-Encoding %q", errBodyEncoding, encoding)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxEchoBodySize))
	if err != nil {
		if encoding != "" && encoding != "identity" && classifyError(err) == ReasonUnclassified {
			return nil, fmt.Errorf("%w: %v", errBodyEncoding, err)
		}
		return nil, err
	}

	return body, nil
}

// classifyError folds a transport error into a FailureReason.
func classifyError(err error) FailureReason {
	if err == nil {
		return ReasonNone
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return ReasonConnect
	}

	if errors.Is(err, errBodyEncoding) {
		return ReasonProtocol
	}

	var recordErr tls.RecordHeaderError
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) {
		return ReasonProtocol
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "malformed http") {
		return ReasonProtocol
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonConnect
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial", "proxyconnect":
			return ReasonConnect
		case "socks connect":
			return ReasonProtocol
		}
	}

	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"):
		return ReasonConnect
	case strings.Contains(msg, "tls:"),
		strings.Contains(msg, "handshake"):
		return ReasonProtocol
	}

	return ReasonUnclassified
}
