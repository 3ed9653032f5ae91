// Package protocol implements the HTTP/1.1 wire format used by the static
// server: request framing and parsing, route resolution and response
// serialization.
package protocol

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedRequest is returned when the request line is missing or
	// does not carry both a method and a URL.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrRequestTooLarge is returned when the request head exceeds the
	// configured size limit before a header terminator is seen.
	ErrRequestTooLarge = errors.New("request too large")

	// ErrContentRead is returned when a registered file cannot be read.
	ErrContentRead = errors.New("content read failure")
)

// Request is the structured form of a request head.
type Request struct {
	Method  string
	URL     string
	Version string

	// Header values. Only these four headers are recognized.
	Host      string
	UserAgent []string
	Cookies   []string
	Accept    []string
}

// RequestLine returns the request line as received, without the line break.
func (r *Request) RequestLine() string {
	parts := []string{r.Method, r.URL}
	if r.Version != "" {
		parts = append(parts, r.Version)
	}
	return strings.Join(parts, " ")
}

// ParseRequest converts raw request bytes into a Request. The first line must
// hold at least a method and a URL; otherwise ErrMalformedRequest is returned
// and no Request is produced.
func ParseRequest(data []byte) (*Request, error) {
	lines := strings.Split(string(data), "\n")

	requestLine := strings.Fields(lines[0])
	if len(requestLine) < 2 {
		return nil, ErrMalformedRequest
	}

	req := &Request{
		Method: requestLine[0],
		URL:    requestLine[1],
	}
	if len(requestLine) > 2 {
		req.Version = requestLine[2]
	}

	for _, line := range lines[1:] {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		values := words[1:]

		// Header names match exactly, colon included.
		switch words[0] {
		case "Host:":
			req.Host = strings.Join(values, " ")
		case "User-Agent:":
			req.UserAgent = values
		case "Cookie:":
			req.Cookies = values
		case "Accept:":
			req.Accept = values
		}
	}

	return req, nil
}
