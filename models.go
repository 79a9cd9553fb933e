package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ProxyCandidate is a proxy address as read from the source, scheme://host:port.
type ProxyCandidate string

var supportedSchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// URL parses the candidate. A bare host:port is treated as an http proxy.
func (c ProxyCandidate) URL() (*url.URL, error) {
	raw := strings.TrimSpace(string(c))
	if raw == "" {
		return nil, errors.New("empty proxy address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	proxyUrl, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	proxyUrl.Scheme = strings.ToLower(proxyUrl.Scheme)
	if !supportedSchemes[proxyUrl.Scheme] {
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyUrl.Scheme)
	}
	if proxyUrl.Hostname() == "" || proxyUrl.Port() == "" {
		return nil, fmt.Errorf("proxy address %q has no host:port", string(c))
	}

	return proxyUrl, nil
}

type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonTimeout
	ReasonConnect
	ReasonProtocol
	ReasonUnclassified
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonConnect:
		return "connect-failure"
	case ReasonProtocol:
		return "protocol-error"
	default:
		return "unclassified"
	}
}

// ProbeResult is the outcome of one probe. OK results carry the echo body,
// failed ones carry Reason and Err.
type ProbeResult struct {
	Candidate  ProxyCandidate
	OK         bool
	StatusCode int
	Body       []byte
	Origin     string
	Reason     FailureReason
	Err        error
	Latency    time.Duration
}

// EchoResponse is the part of the echo endpoint's body we look at.
type EchoResponse struct {
	Origin string `json:"origin"`
}

var ErrMalformedRecord = errors.New("malformed proxy record")

// MalformedRecordError reports a source row that holds no usable address.
type MalformedRecordError struct {
	Line   int
	Record []string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at line %d: %v", ErrMalformedRecord, e.Line, e.Err)
	}
	return fmt.Sprintf("%s at line %d: missing proxy address in %q", ErrMalformedRecord, e.Line, e.Record)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
