package protocol

import (
	"errors"
	"reflect"
	"testing"
)

// TestParseRequest verifies request line and header extraction.
func TestParseRequest(t *testing.T) {
	raw := "GET /style.css HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"User-Agent: Mozilla/5.0 (X11; Linux x86_64)\r\n" +
		"Accept: text/css,*/*;q=0.1\r\n" +
		"Cookie: a=1; b=2\r\n" +
		"Connection: keep-alive\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}

	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.URL != "/style.css" {
		t.Errorf("URL = %q, want /style.css", req.URL)
	}
	if req.Version != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", req.Version)
	}
	if req.Host != "localhost:8080" {
		t.Errorf("Host = %q, want localhost:8080", req.Host)
	}
	if want := []string{"Mozilla/5.0", "(X11;", "Linux", "x86_64)"}; !reflect.DeepEqual(req.UserAgent, want) {
		t.Errorf("UserAgent = %q, want %q", req.UserAgent, want)
	}
	if want := []string{"text/css,*/*;q=0.1"}; !reflect.DeepEqual(req.Accept, want) {
		t.Errorf("Accept = %q, want %q", req.Accept, want)
	}
	if want := []string{"a=1;", "b=2"}; !reflect.DeepEqual(req.Cookies, want) {
		t.Errorf("Cookies = %q, want %q", req.Cookies, want)
	}
	if got := req.RequestLine(); got != "GET /style.css HTTP/1.1" {
		t.Errorf("RequestLine() = %q", got)
	}
}

// TestParseRequestMalformed verifies underspecified request lines are rejected.
func TestParseRequestMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty input", raw: ""},
		{name: "only line break", raw: "\r\n"},
		{name: "method only", raw: "GET\r\nHost: x\r\n\r\n"},
		{name: "blank request line", raw: "   \r\nGET / HTTP/1.1\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("err = %v, want ErrMalformedRequest", err)
			}
			if req != nil {
				t.Errorf("expected no request, got %+v", req)
			}
		})
	}
}

// TestParseRequestHeaderMatching verifies header names are matched exactly.
func TestParseRequestHeaderMatching(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHost   string
		wantAccept []string
	}{
		{
			name:     "lowercase name is ignored",
			raw:      "GET / HTTP/1.1\r\nhost: example.com\r\n\r\n",
			wantHost: "",
		},
		{
			name:     "missing colon is ignored",
			raw:      "GET / HTTP/1.1\r\nHost example.com\r\n\r\n",
			wantHost: "",
		},
		{
			name:       "blank lines are skipped",
			raw:        "GET / HTTP/1.1\r\n\r\n\r\nAccept: text/html\r\n",
			wantAccept: []string{"text/html"},
		},
		{
			name:     "bare line feeds",
			raw:      "GET / HTTP/1.0\nHost: example.com\n\n",
			wantHost: "example.com",
		},
		{
			name:       "header without value",
			raw:        "GET / HTTP/1.1\r\nAccept:\r\n\r\n",
			wantAccept: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseRequest failed: %v", err)
			}
			if req.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", req.Host, tt.wantHost)
			}
			if len(req.Accept) != len(tt.wantAccept) {
				t.Fatalf("Accept = %q, want %q", req.Accept, tt.wantAccept)
			}
			for i := range tt.wantAccept {
				if req.Accept[i] != tt.wantAccept[i] {
					t.Errorf("Accept[%d] = %q, want %q", i, req.Accept[i], tt.wantAccept[i])
				}
			}
		})
	}
}

// TestParseRequestWithoutVersion verifies a two-token request line is accepted.
func TestParseRequestWithoutVersion(t *testing.T) {
	req, err := ParseRequest([]byte("GET /index.html"))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if req.URL != "/index.html" || req.Version != "" {
		t.Errorf("got URL %q Version %q", req.URL, req.Version)
	}
	if got := req.RequestLine(); got != "GET /index.html" {
		t.Errorf("RequestLine() = %q", got)
	}
}
