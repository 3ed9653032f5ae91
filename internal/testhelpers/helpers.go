// Package testhelpers provides common utilities and helper functions for testing the static server.
//
// It provides functions for laying out site files, talking to a server over a
// raw TCP connection, and asserting response properties to reduce code
// duplication in test files.
package testhelpers

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// RawResponse is a response split into its parts.
type RawResponse struct {
	StatusLine string
	Headers    []string
	Body       []byte
}

// Header returns the value of the named header line.
func (r *RawResponse) Header(name string) (string, bool) {
	for _, header := range r.Headers {
		if value, ok := strings.CutPrefix(header, name+": "); ok {
			return value, true
		}
	}
	return "", false
}

// WriteFile creates dir/name with content, creating dir if needed, and
// returns the file path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// SendRaw dials addr, writes payload, half-closes the write side and returns
// everything the server sends until it closes the connection.
func SendRaw(t *testing.T, addr string, payload []byte) []byte {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("Failed to set deadline: %v", err)
	}

	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			t.Fatalf("Failed to write request: %v", err)
		}
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			t.Fatalf("Failed to half-close: %v", err)
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return data
}

// ParseResponse splits a raw response into status line, headers and body.
func ParseResponse(t *testing.T, raw []byte) *RawResponse {
	t.Helper()

	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	if idx < 0 {
		t.Fatalf("Response has no header terminator: %q", raw)
	}

	lines := strings.Split(string(raw[:idx]), "\r\n")
	return &RawResponse{
		StatusLine: lines[0],
		Headers:    lines[1:],
		Body:       raw[idx+4:],
	}
}

// AssertStatusLine checks the response status line.
func AssertStatusLine(t *testing.T, resp *RawResponse, expected string) {
	t.Helper()
	if resp.StatusLine != expected {
		t.Errorf("Expected status line %q, got %q", expected, resp.StatusLine)
	}
}

// AssertContentType checks the Content-Type header.
func AssertContentType(t *testing.T, resp *RawResponse, expected string) {
	t.Helper()
	contentType, _ := resp.Header("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// AssertContentLength checks that Content-Length matches the body received.
func AssertContentLength(t *testing.T, resp *RawResponse) {
	t.Helper()
	declared, ok := resp.Header("Content-Length")
	if !ok {
		t.Error("Response has no Content-Length header")
		return
	}
	n, err := strconv.Atoi(declared)
	if err != nil {
		t.Errorf("Invalid Content-Length %q: %v", declared, err)
		return
	}
	if n != len(resp.Body) {
		t.Errorf("Content-Length %d does not match body length %d", n, len(resp.Body))
	}
}
