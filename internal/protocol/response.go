package protocol

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// Defaults applied by NewResponse.
const (
	DefaultVersion      = "HTTP/1.1"
	DefaultStatusCode   = 404
	DefaultReasonPhrase = "Not Found"
	DefaultContentType  = "text/html"
)

// NotFoundBody is the placeholder page sent for unknown paths.
var NotFoundBody = []byte("<html><body>This page is not found...</body></html>")

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
}

// Response is a complete response ready to be serialized.
type Response struct {
	Version      string
	StatusCode   int
	ReasonPhrase string
	// Headers holds extra header lines, without line breaks, in emission order.
	Headers     []string
	ContentType string
	Body        []byte
}

// Resolver maps a URL path to a file location.
type Resolver interface {
	Lookup(urlPath string) (string, bool)
}

// NewResponse returns the default 404 response.
func NewResponse() *Response {
	return &Response{
		Version:      DefaultVersion,
		StatusCode:   DefaultStatusCode,
		ReasonPhrase: DefaultReasonPhrase,
		ContentType:  DefaultContentType,
		Body:         append([]byte(nil), NotFoundBody...),
	}
}

// ErrorResponse returns a response for the given status with a short HTML body.
func ErrorResponse(statusCode int, reasonPhrase string) *Response {
	resp := NewResponse()
	resp.StatusCode = statusCode
	resp.ReasonPhrase = reasonPhrase
	resp.Body = []byte(fmt.Sprintf("<html><body>%d %s</body></html>", statusCode, reasonPhrase))
	return resp
}

// BuildResponse resolves req against routes. Unknown paths produce the default
// 404 response. A registered file that cannot be read produces a 500 response
// together with an error wrapping ErrContentRead so the caller can log it.
func BuildResponse(req *Request, routes Resolver) (*Response, error) {
	resp := NewResponse()

	location, ok := routes.Lookup(req.URL)
	if !ok {
		return resp, nil
	}

	body, err := os.ReadFile(location)
	if err != nil {
		return ErrorResponse(500, "Internal Server Error"),
			fmt.Errorf("%w: %s: %v", ErrContentRead, location, err)
	}

	resp.StatusCode = 200
	resp.ReasonPhrase = "OK"
	resp.Body = body
	resp.ContentType = contentTypeFor(req)
	return resp, nil
}

// contentTypeFor picks the media type from the URL extension for images and
// from the first Accept token for everything else.
func contentTypeFor(req *Request) string {
	ext := strings.TrimPrefix(path.Ext(req.URL), ".")
	if _, ok := imageExtensions[ext]; ok {
		return "image/" + ext
	}
	if len(req.Accept) > 0 && strings.Contains(req.Accept[0], "css") {
		return "text/css"
	}
	return DefaultContentType
}

// StatusLine returns the first line of the serialized response.
func (r *Response) StatusLine() string {
	return r.Version + " " + strconv.Itoa(r.StatusCode) + " " + r.ReasonPhrase
}

// Bytes serializes the response head followed by the body verbatim.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(128 + len(r.Body))

	buf.WriteString(r.StatusLine())
	buf.WriteString("\r\n")
	for _, header := range r.Headers {
		buf.WriteString(header)
		buf.WriteString("\r\n")
	}
	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(r.Body)))
	buf.WriteString("\r\n")
	buf.WriteString("Content-Type: ")
	buf.WriteString(r.ContentType)
	buf.WriteString("\r\n\r\n")
	buf.Write(r.Body)

	return buf.Bytes()
}

// WriteTo writes the serialized response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
