// Package testutil provides testing utilities for the debtplan server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"debtplan/internal/config"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	t       *testing.T
}

// ProjectRoot returns the directory holding go.mod
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TemplatesDir returns the path to web/templates
func TemplatesDir() string {
	return filepath.Join(ProjectRoot(), "web", "templates")
}

// TestConfig returns a config with a fresh data directory and the real templates
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ListenAddr = ":0"
	cfg.DataDirectory = t.TempDir()
	cfg.TemplatesDirectory = TemplatesDir()
	cfg.StaticDirectory = filepath.Join(ProjectRoot(), "web", "static")
	cfg.Cache.TTL = 0
	return cfg
}

// NewTestServer starts an httptest server for router and closes it with the test
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()

	resp, err := http.Get(ts.BaseURL + path)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// GETWithQuery performs a GET request with query parameters
func (ts *TestServer) GETWithQuery(path string, query url.Values) *http.Response {
	ts.t.Helper()

	target := ts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return ts.GET(strings.TrimPrefix(target, ts.BaseURL))
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	resp, err := http.Post(ts.BaseURL+path, contentType, body)
	if err != nil {
		ts.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// PostForm submits form values the way an htmx form does
func (ts *TestServer) PostForm(path string, form url.Values) *http.Response {
	ts.t.Helper()
	return ts.POST(path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// PostJSON encodes v as the request body
func (ts *TestServer) PostJSON(path string, v interface{}) *http.Response {
	ts.t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatalf("encode request for %s: %v", path, err)
	}
	return ts.POST(path, "application/json", bytes.NewReader(data))
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
