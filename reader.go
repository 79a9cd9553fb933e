package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/corpix/uarand"
)

// Source yields proxy candidates in order and returns io.EOF when done.
type Source interface {
	Next() (ProxyCandidate, error)
}

const maxRecordSize = 1024 * 1024

// CSVSource reads one candidate per line from the first column of a CSV
// stream. It reads lazily and cannot be rewound. A blank line is a record
// with no address, not a separator.
type CSVSource struct {
	scanner *bufio.Scanner
	line    int
}

func NewCSVSource(r io.Reader) *CSVSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	return &CSVSource{scanner: scanner}
}

func (s *CSVSource) Next() (ProxyCandidate, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading proxy source: %w", err)
		}
		return "", io.EOF
	}
	s.line++

	text := s.scanner.Text()
	if strings.TrimSpace(text) == "" {
		return "", &MalformedRecordError{Line: s.line}
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	record, err := reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return "", &MalformedRecordError{Line: s.line, Err: parseErr.Err}
		}
		return "", &MalformedRecordError{Line: s.line, Err: err}
	}

	if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
		return "", &MalformedRecordError{Line: s.line, Record: record}
	}

	return ProxyCandidate(strings.TrimSpace(record[0])), nil
}

// OpenCSVSource opens a proxy list file. The caller closes the returned Closer.
func OpenCSVSource(filename string) (*CSVSource, io.Closer, error) {
	logInfof("Reading proxies from file %s", filename)

	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening proxy file %s: %w", filename, err)
	}

	return NewCSVSource(file), file, nil
}

// FetchSource downloads a proxy list and reads it like a local file.
func FetchSource(ctx context.Context, client *http.Client, listUrl string) (*CSVSource, io.Closer, error) {
	logInfof("Try to retrieve proxies from URL %s", listUrl)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listUrl, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("User-Agent", uarand.GetRandom())

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error during request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("failed to fetch proxy list from %s: %s", listUrl, resp.Status)
	}

	logInfof("Proxies are being received from URL %s", listUrl)

	return NewCSVSource(resp.Body), resp.Body, nil
}
