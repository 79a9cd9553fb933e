package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func writeProxyFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxies.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(mode, file string) Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.ProxyFile = file
	cfg.Endpoint = testEndpoint
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestRunCommand_FirstSuccessPrintsBody(t *testing.T) {
	alive := newHTTPProxy(t, echoHandler("10.0.0.2"))
	file := writeProxyFile(t, "http://"+refusedAddr(t), string(alive))

	var out, status bytes.Buffer
	if err := Run(context.Background(), testConfig(ModeFirst, file), &out, &status, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := strings.TrimSpace(out.String()); got != `{"origin": "10.0.0.2"}` {
		t.Errorf("stdout = %q", got)
	}
	if !strings.Contains(status.String(), "[-] Proxy") || !strings.Contains(status.String(), "[+] Proxy") {
		t.Errorf("status = %q", status.String())
	}
}

func TestRunCommand_FirstSuccessExhausted(t *testing.T) {
	file := writeProxyFile(t, "http://"+refusedAddr(t))

	var out, status bytes.Buffer
	if err := Run(context.Background(), testConfig(ModeFirst, file), &out, &status, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "proxy list exhausted" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunCommand_ExhaustiveWritesOutput(t *testing.T) {
	alive := newHTTPProxy(t, echoHandler("10.0.0.2"))
	file := writeProxyFile(t, "http://"+refusedAddr(t), string(alive))

	cfg := testConfig(ModeAll, file)
	cfg.OutputFile = filepath.Join(t.TempDir(), "working.txt")

	var out, status bytes.Buffer
	if err := Run(context.Background(), cfg, &out, &status, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got, want := strings.TrimSpace(out.String()), "{\"origin\": \"10.0.0.2\"}\nGood proxies ---> 1"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}

	saved, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != string(alive)+"\n" {
		t.Errorf("output file = %q", saved)
	}
}

func TestRunCommand_MalformedFileFails(t *testing.T) {
	file := writeProxyFile(t, "http://"+refusedAddr(t), ",x")

	var out, status bytes.Buffer
	err := Run(context.Background(), testConfig(ModeAll, file), &out, &status, false)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("Run() error = %v, want ErrMalformedRecord", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", out.String())
	}
}

func TestRunCommand_MissingFileFails(t *testing.T) {
	cfg := testConfig(ModeFirst, filepath.Join(t.TempDir(), "missing.csv"))
	if err := Run(context.Background(), cfg, &bytes.Buffer{}, &bytes.Buffer{}, false); err == nil {
		t.Fatal("expected error for missing proxy file")
	}
}

func TestRunCommand_Single(t *testing.T) {
	alive := newHTTPProxy(t, echoHandler("194.163.131.117"))

	cfg := testConfig(ModeSingle, "")
	cfg.Proxy = string(alive)

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, &bytes.Buffer{}, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "194.163.131.117") {
		t.Errorf("stdout = %q", out.String())
	}

	cfg.Proxy = "http://" + refusedAddr(t)
	out.Reset()
	if err := Run(context.Background(), cfg, &out, &bytes.Buffer{}, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Unable to connect to the proxy: connect-failure") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRunCommand_RemoteList(t *testing.T) {
	alive := newHTTPProxy(t, echoHandler("10.0.0.3"))

	var gotUA string
	lists := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(string(alive) + ",fast\n"))
	}))
	defer lists.Close()

	cfg := testConfig(ModeAll, "")
	cfg.ProxyListURL = lists.URL + "/proxies.csv"

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, &bytes.Buffer{}, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got, want := strings.TrimSpace(out.String()), "{\"origin\": \"10.0.0.3\"}\nGood proxies ---> 1"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if gotUA == "" {
		t.Error("expected a User-Agent on the list request")
	}
}

func TestFetchSource_NotFound(t *testing.T) {
	lists := httptest.NewServer(http.NotFoundHandler())
	defer lists.Close()

	_, _, err := FetchSource(context.Background(), lists.Client(), lists.URL+"/missing.csv")
	if err == nil {
		t.Fatal("expected error for 404 list")
	}
}

func TestWriteProxiesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	proxies := []ProxyCandidate{"http://10.0.0.1:8080", "socks5://10.0.0.2:1080"}

	if err := writeProxiesToFile(path, proxies); err != nil {
		t.Fatalf("writeProxiesToFile() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "http://10.0.0.1:8080\nsocks5://10.0.0.2:1080\n" {
		t.Errorf("file = %q", got)
	}

	if err := writeProxiesToFile(filepath.Join(t.TempDir(), "no", "such", "dir.txt"), proxies); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestInitLogger_SilentAtZero(t *testing.T) {
	var buf bytes.Buffer
	initLogger(0, &buf)
	defer initLogger(0, os.Stderr)

	logErrorf("should not appear")
	if buf.Len() != 0 {
		t.Errorf("level 0 wrote %q", buf.String())
	}

	initLogger(2, &buf)
	logInfof("probing %s", "10.0.0.1:9999")
	logDebugf("hidden at info")
	if !strings.Contains(buf.String(), "probing 10.0.0.1:9999") {
		t.Errorf("level 2 output = %q", buf.String())
	}
	if strings.Contains(buf.String(), "hidden at info") {
		t.Errorf("debug line written at level 2: %q", buf.String())
	}
}
