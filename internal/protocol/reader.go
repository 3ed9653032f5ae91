package protocol

import (
	"bytes"
	"errors"
	"io"
	"os"
)

const readChunkSize = 1024

var (
	crlfTerminator = []byte("\r\n\r\n")
	lfTerminator   = []byte("\n\n")
)

// ReadHead reads a request head from r until a blank line terminates the
// headers, the peer stops sending, or more than limit bytes have arrived.
//
// An end of stream or an expired read deadline after at least one byte is not
// an error: the bytes received so far are returned so the caller can still
// answer. When nothing at all was received, EOF yields an empty slice and a
// nil error, and a deadline expiry is returned as is. Exceeding limit returns
// the first limit bytes together with ErrRequestTooLarge.
func ReadHead(r io.Reader, limit int) ([]byte, error) {
	buf := make([]byte, 0, min(limit, 4*readChunkSize))
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			// Only the tail can complete a terminator split across reads.
			searchFrom := max(0, len(buf)-len(crlfTerminator)+1)
			buf = append(buf, chunk[:n]...)

			if end := headEnd(buf, searchFrom); end >= 0 {
				if end > limit {
					return buf[:limit], ErrRequestTooLarge
				}
				return buf, nil
			}
			if len(buf) > limit {
				return buf[:limit], ErrRequestTooLarge
			}
		}

		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return buf, nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) && len(buf) > 0 {
			return buf, nil
		}
		return buf, err
	}
}

// headEnd returns the offset just past the first header terminator found at
// or after from, or -1.
func headEnd(b []byte, from int) int {
	end := -1
	for _, terminator := range [][]byte{crlfTerminator, lfTerminator} {
		if i := bytes.Index(b[from:], terminator); i >= 0 {
			if e := from + i + len(terminator); end < 0 || e < end {
				end = e
			}
		}
	}
	return end
}
